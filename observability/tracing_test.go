package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestTracing(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	tp, err := SetupTracing(ctx, DefaultTracerConfig())
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, ShutdownTracing(ctx, tp))
	})
}

func TestSetupTracing(t *testing.T) {
	for _, exporter := range []string{"none", "stdout"} {
		t.Run(exporter, func(t *testing.T) {
			cfg := DefaultTracerConfig()
			cfg.ExporterType = exporter
			tp, err := SetupTracing(context.Background(), cfg)
			require.NoError(t, err)
			require.NoError(t, ShutdownTracing(context.Background(), tp))
		})
	}
}

func TestSetupTracing_InvalidExporter(t *testing.T) {
	cfg := DefaultTracerConfig()
	cfg.ExporterType = "carrier-pigeon"
	_, err := SetupTracing(context.Background(), cfg)
	assert.ErrorContains(t, err, "unsupported exporter type")
}

func TestResolverSpans(t *testing.T) {
	setupTestTracing(t)
	ctx := context.Background()

	ctx, gather := StartGatherSpan(ctx, "op-1", 2, "net8.0")
	require.True(t, gather.SpanContext().IsValid())

	passCtx, pass := StartGatherPassSpan(ctx, 1, 4)
	queryCtx, query := StartSourceQuerySpan(passCtx, "a", "1.0.0", "repoA")
	RecordCacheHit(queryCtx, true)
	RecordRetry(queryCtx, 1, errors.New("503"))

	assert.Equal(t, gather.SpanContext().TraceID(), query.SpanContext().TraceID())

	EndSpanWithError(query, nil)
	EndSpanWithError(pass, errors.New("source down"))
	EndSpanWithError(gather, nil)

	_, uninstall := StartUninstallSpan(context.Background(), "a", "1.0.0", 5)
	assert.True(t, uninstall.SpanContext().IsValid())
	uninstall.End()
}

func TestHTTPTracingTransport(t *testing.T) {
	setupTestTracing(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("Traceparent"))
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := &http.Client{Transport: NewHTTPTracingTransport(nil, TracerName)}

	ctx, span := StartGatherSpan(context.Background(), "op-2", 1, "any")
	defer span.End()

	for _, path := range []string{"/index.json", "/missing"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, server.URL+path, nil)
		require.NoError(t, err)
		resp, err := client.Do(req)
		require.NoError(t, err)
		_ = resp.Body.Close()
	}
}
