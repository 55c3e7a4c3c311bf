package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName is the tracer used for resolver and feed spans.
const TracerName = "github.com/willibrandon/gonuget-pm"

// Common attribute keys
const (
	AttrPackageID      = attribute.Key("nuget.package.id")
	AttrPackageVersion = attribute.Key("nuget.package.version")
	AttrSourceName     = attribute.Key("nuget.source.name")
	AttrSourceURL      = attribute.Key("nuget.source.url")
	AttrFramework      = attribute.Key("nuget.framework")
	AttrOperation      = attribute.Key("nuget.operation")
	AttrCacheHit       = attribute.Key("nuget.cache.hit")
	AttrGatherPass     = attribute.Key("nuget.gather.pass")
	AttrRequestCount   = attribute.Key("nuget.gather.requests")
)

// StartGatherSpan starts the span covering one Gather call.
func StartGatherSpan(ctx context.Context, operationID string, targets int, framework string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "resolver.gather",
		trace.WithAttributes(
			attribute.String("gather.operation_id", operationID),
			attribute.Int("gather.targets", targets),
			AttrFramework.String(framework),
			AttrOperation.String("gather"),
		),
	)
}

// StartGatherPassSpan starts the span covering one fixed-point pass.
func StartGatherPassSpan(ctx context.Context, pass, requests int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "resolver.gather.pass",
		trace.WithAttributes(
			AttrGatherPass.Int(pass),
			AttrRequestCount.Int(requests),
		),
	)
}

// StartSourceQuerySpan starts the span for one dependency info query.
// version is empty for all-versions lookups.
func StartSourceQuerySpan(ctx context.Context, packageID, version, source string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "resolver.gather.query",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			AttrPackageID.String(packageID),
			AttrPackageVersion.String(version),
			AttrSourceName.String(source),
		),
	)
}

// StartUninstallSpan starts the span for one uninstall resolution.
func StartUninstallSpan(ctx context.Context, packageID, version string, installed int) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "resolver.uninstall",
		trace.WithAttributes(
			AttrPackageID.String(packageID),
			AttrPackageVersion.String(version),
			attribute.Int("uninstall.installed", installed),
			AttrOperation.String("uninstall"),
		),
	)
}

// StartServiceIndexFetchSpan starts a span for service index fetch
func StartServiceIndexFetchSpan(ctx context.Context, sourceURL string) (context.Context, trace.Span) {
	return StartSpan(ctx, TracerName, "service_index.fetch",
		trace.WithAttributes(
			AttrSourceURL.String(sourceURL),
			AttrOperation.String("fetch_service_index"),
		),
	)
}

// RecordCacheHit records cache hit/miss on the current span
func RecordCacheHit(ctx context.Context, hit bool) {
	SetAttributes(ctx, AttrCacheHit.Bool(hit))
}

// RecordRetry records a retry attempt on the current span
func RecordRetry(ctx context.Context, attempt int, err error) {
	SpanFromContext(ctx).AddEvent("retry",
		trace.WithAttributes(
			attribute.Int("retry.attempt", attempt),
			attribute.String("retry.error", err.Error()),
		),
	)
}

// EndSpanWithError sets the span status from err and ends it.
func EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
