package resolver

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/observability"
)

// sourceResource pairs a repository with its created resource.
type sourceResource struct {
	repo     *core.SourceRepository
	resource core.DependencyInfoResource
}

// gatherRequest is one query of one source. A request without a version asks
// for every version of the id.
type gatherRequest struct {
	source     *sourceResource
	identity   core.PackageIdentity
	bestEffort bool
	installed  bool
	order      int
}

type gatherResult struct {
	request  *gatherRequest
	packages []*core.SourcePackageDependencyInfo
}

// gatherer holds the state of one Gather call.
type gatherer struct {
	gc       *GatherContext
	logger   observability.Logger
	cache    *GatherCache
	cacheCtx *cache.SourceCacheContext
	behavior DependencyBehavior

	allowDowngrades bool

	primary        []*sourceResource
	all            []*sourceResource
	packagesFolder core.DependencyInfoResource

	searched  map[string]bool
	queue     []*gatherRequest
	results   []*gatherResult
	lastOrder int

	timeMu      sync.Mutex
	timeTaken   map[string]time.Duration
	timeSources []string
}

// Gather collects the dependency information of the primary targets, the
// installed packages and everything reachable from them, querying sources in
// passes until no new ids turn up. The result holds one entry per package
// identity, in the order the queries that found them were made.
func Gather(ctx context.Context, gc *GatherContext) ([]*core.SourcePackageDependencyInfo, error) {
	if err := gc.validate(); err != nil {
		return nil, err
	}

	rc := gc.ResolutionContext
	if rc == nil {
		rc = &ResolutionContext{}
	}
	g := &gatherer{
		gc:        gc,
		logger:    observability.OrNull(gc.Logger),
		cache:     rc.GatherCache,
		cacheCtx:  rc.SourceCacheContext,
		behavior:  rc.DependencyBehavior,
		searched:  make(map[string]bool),
		timeTaken: make(map[string]time.Duration),

		allowDowngrades: gc.AllowDowngrades || rc.AllowDowngrades,
	}

	operationID := uuid.New().String()
	ctx, span := observability.StartGatherSpan(ctx, operationID,
		len(gc.PrimaryTargets)+len(gc.PrimaryTargetIDs), gc.TargetFramework.ShortFolderName())
	start := time.Now()

	results, err := g.run(ctx)

	observability.GatherDuration.Observe(time.Since(start).Seconds())
	observability.GatherOperationsTotal.WithLabelValues(gatherOutcome(err)).Inc()
	observability.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}
	observability.GatherPackagesFound.Observe(float64(len(results)))
	return results, nil
}

func gatherOutcome(err error) string {
	var (
		unresolvable *UnresolvablePackageError
		queryErr     *SourceQueryError
	)
	switch {
	case err == nil:
		return "success"
	case errors.As(err, &unresolvable):
		return "unresolvable"
	case errors.As(err, &queryErr):
		return "error"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	}
	return "error"
}

func canceled(err error) error {
	return fmt.Errorf("gather canceled: %w", err)
}

func (g *gatherer) run(ctx context.Context) ([]*core.SourcePackageDependencyInfo, error) {
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	if err := g.initResources(ctx); err != nil {
		return nil, err
	}

	primaryIDs := make(map[string]bool)
	var primaryOrder []string
	addPrimary := func(id string) {
		if key := strings.ToLower(id); !primaryIDs[key] {
			primaryIDs[key] = true
			primaryOrder = append(primaryOrder, id)
		}
	}

	for _, target := range g.gc.PrimaryTargets {
		g.searched[strings.ToLower(target.ID)] = true
		addPrimary(target.ID)
		g.enqueue(ctx, g.primary, target, false, false)
	}
	for _, id := range g.gc.PrimaryTargetIDs {
		addPrimary(id)
		g.enqueue(ctx, g.primary, core.PackageIdentity{ID: id}, false, false)
	}

	if err := g.gatherInstalled(ctx, primaryIDs); err != nil {
		return nil, err
	}

	for pass := 1; ; pass++ {
		if err := ctx.Err(); err != nil {
			return nil, canceled(err)
		}
		if err := g.runPass(ctx, pass); err != nil {
			return nil, err
		}

		current := mergeResults(g.results, nil)
		if !g.allowDowngrades {
			current = g.dropDowngrades(current)
		}
		installed := mergeResults(g.results, func(r *gatherResult) bool { return r.request.installed })

		if g.behavior != DependencyBehaviorIgnore {
			for _, id := range closureIDs(current, installed, g.searched) {
				g.enqueue(ctx, g.all, core.PackageIdentity{ID: id}, true, false)
			}
		}

		if len(g.queue) == 0 {
			g.logger.DebugContext(ctx, "Total number of results gathered: {Count}", len(g.results))
			break
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, canceled(err)
	}

	combined := mergeResults(g.results, nil)

	if !g.gc.IsUpdateAll {
		if err := g.checkPrimaryTargets(combined, primaryOrder); err != nil {
			return nil, err
		}
	}

	g.logger.InfoContext(ctx, "Gathered {Count} packages in {Elapsed}", len(combined), time.Since(start))
	g.logTimings(ctx)
	return combined, nil
}

// initResources creates the resource of every distinct source concurrently.
// Sources are distinct by their Source value; the first repository wins.
func (g *gatherer) initResources(ctx context.Context) error {
	var repos []*core.SourceRepository
	index := make(map[string]int)
	add := func(r *core.SourceRepository) {
		if r == nil {
			return
		}
		key := strings.ToLower(r.Source())
		if _, ok := index[key]; !ok {
			index[key] = len(repos)
			repos = append(repos, r)
		}
	}
	for _, r := range g.gc.PrimarySources {
		add(r)
	}
	add(g.gc.PackagesFolderSource)
	for _, r := range g.gc.AllSources {
		add(r)
	}

	resources := make([]*sourceResource, len(repos))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.gc.maxDOP())
	for i, repo := range repos {
		eg.Go(func() error {
			resource, err := repo.GetDependencyInfoResource(egctx)
			if err != nil {
				if ctx.Err() != nil {
					return canceled(ctx.Err())
				}
				return &SourceInitError{Source: repo.Source(), Err: err}
			}
			resources[i] = &sourceResource{repo: repo, resource: resource}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	pick := func(list []*core.SourceRepository) []*sourceResource {
		var out []*sourceResource
		seen := make(map[int]bool)
		for _, r := range list {
			if r == nil {
				continue
			}
			i := index[strings.ToLower(r.Source())]
			if !seen[i] {
				seen[i] = true
				out = append(out, resources[i])
			}
		}
		return out
	}

	g.primary = pick(g.gc.PrimarySources)
	g.all = pick(repos)
	if g.gc.PackagesFolderSource != nil {
		g.packagesFolder = resources[index[strings.ToLower(g.gc.PackagesFolderSource.Source())]].resource
	}
	return nil
}

// enqueue adds a query of identity against each source. A request for every
// version of an id is made at most once per call; exact lookups are always
// queued since the id may still need a full search later.
func (g *gatherer) enqueue(ctx context.Context, sources []*sourceResource, identity core.PackageIdentity, bestEffort, installed bool) {
	var allowed []string
	mapped := g.gc.PackageSourceMapping.IsEnabled()
	if mapped {
		allowed = g.gc.PackageSourceMapping.GetConfiguredPackageSources(identity.ID)
		if len(allowed) > 0 {
			g.logger.DebugContext(ctx, "Package source mapping matches found for package ID '{PackageID}' are: '{Sources}'",
				identity.ID, strings.Join(allowed, ", "))
		} else {
			g.logger.DebugContext(ctx, "Package source mapping match not found for package ID '{PackageID}'", identity.ID)
		}
	}

	if !identity.HasVersion() {
		key := strings.ToLower(identity.ID)
		if g.searched[key] {
			return
		}
		g.searched[key] = true
	}

	for _, source := range sources {
		if mapped && !slices.ContainsFunc(allowed, func(name string) bool { return strings.EqualFold(name, source.repo.Name()) }) {
			continue
		}
		g.lastOrder++
		g.queue = append(g.queue, &gatherRequest{
			source:     source,
			identity:   identity,
			bestEffort: bestEffort,
			installed:  installed,
			order:      g.lastOrder,
		})
	}
}

// gatherInstalled records installed packages found in the packages folder and
// queues a best-effort lookup of the rest. Installed ids that are also
// targets are left to the target lookups.
func (g *gatherer) gatherInstalled(ctx context.Context, primaryIDs map[string]bool) error {
	for _, installed := range g.gc.InstalledPackages {
		if primaryIDs[strings.ToLower(installed.ID)] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return canceled(err)
		}

		var info *core.SourcePackageDependencyInfo
		if g.packagesFolder != nil {
			var err error
			info, err = g.packagesFolder.ResolvePackage(ctx, installed, g.gc.TargetFramework, g.cacheCtx)
			if err != nil {
				if ctx.Err() != nil {
					return canceled(ctx.Err())
				}
				return &SourceQueryError{PackageID: installed.ID, Source: g.gc.PackagesFolderSource.Source(), Err: err}
			}
		}

		if info != nil {
			g.lastOrder++
			g.results = append(g.results, &gatherResult{
				request:  &gatherRequest{identity: installed, installed: true, order: g.lastOrder},
				packages: []*core.SourcePackageDependencyInfo{info},
			})
			continue
		}
		g.enqueue(ctx, g.all, installed, true, true)
	}
	return nil
}

// runPass runs every queued request, at most maxDOP at a time, and appends
// the results once all have finished.
func (g *gatherer) runPass(ctx context.Context, pass int) error {
	requests := g.queue
	g.queue = nil
	if len(requests) == 0 {
		return nil
	}

	ctx, span := observability.StartGatherPassSpan(ctx, pass, len(requests))
	defer span.End()
	observability.GatherPassesTotal.Inc()
	g.logger.DebugContext(ctx, "Gather pass {Pass} running {RequestCount} requests", pass, len(requests))

	slots := make([]*gatherResult, len(requests))
	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.gc.maxDOP())
	for i, req := range requests {
		eg.Go(func() error {
			packages, err := g.gatherPackage(egctx, req)
			if err != nil {
				return err
			}
			slots[i] = &gatherResult{request: req, packages: packages}
			return nil
		})
	}

	err := eg.Wait()
	if ctx.Err() != nil {
		err = canceled(ctx.Err())
	}
	if err != nil {
		observability.EndSpanWithError(span, err)
		return err
	}

	g.results = append(g.results, slots...)
	return nil
}

// gatherPackage runs one request, from the gather cache when it has an entry.
func (g *gatherer) gatherPackage(ctx context.Context, req *gatherRequest) ([]*core.SourcePackageDependencyInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	source := req.source.repo
	sourceName := source.Name()
	version := ""
	if req.identity.HasVersion() {
		version = req.identity.Version.ToNormalizedString()
	}
	ctx, span := observability.StartSourceQuerySpan(ctx, req.identity.ID, version, sourceName)
	defer span.End()

	if g.cache != nil {
		var cached GatherCacheResult
		if req.identity.HasVersion() {
			cached = g.cache.GetPackage(source.PackageSource(), req.identity, g.gc.TargetFramework)
		} else {
			cached = g.cache.GetPackages(source.PackageSource(), req.identity.ID, g.gc.TargetFramework)
		}
		observability.RecordCacheHit(ctx, cached.HasEntry)
		if cached.HasEntry {
			observability.CacheHitsTotal.WithLabelValues("gather").Inc()
			observability.SourceQueriesTotal.WithLabelValues(sourceName, "cached").Inc()
			g.logger.DebugContext(ctx, "Package {PackageID} from source {Source} gathered from cache", req.identity.ID, sourceName)
			return cached.Packages, nil
		}
		observability.CacheMissesTotal.WithLabelValues("gather").Inc()
	}

	if g.gc.Tracker != nil {
		g.gc.Tracker.Enter()
		defer g.gc.Tracker.Exit()
	}

	start := time.Now()
	packages, err := g.query(ctx, req)
	elapsed := time.Since(start)
	g.recordTime(source.Source(), elapsed)
	observability.SourceQueryDuration.WithLabelValues(sourceName).Observe(elapsed.Seconds())

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		observability.SourceQueriesTotal.WithLabelValues(sourceName, "error").Inc()
		queryErr := &SourceQueryError{PackageID: req.identity.ID, Source: source.Source(), Err: err}
		if req.bestEffort && g.gc.IgnoreSecondarySourceErrors {
			observability.AddEvent(ctx, "source.error.ignored", attribute.String("error", err.Error()))
			g.logger.WarnContext(ctx, "{Error}", queryErr.Error())
			return nil, nil
		}
		observability.EndSpanWithError(span, queryErr)
		return nil, queryErr
	}

	result := "found"
	if len(packages) == 0 {
		result = "missing"
	}
	observability.SourceQueriesTotal.WithLabelValues(sourceName, result).Inc()

	if g.cache != nil {
		if req.identity.HasVersion() {
			var pkg *core.SourcePackageDependencyInfo
			if len(packages) > 0 {
				pkg = packages[0]
			}
			g.cache.AddPackageFromSingleVersionLookup(source.PackageSource(), req.identity, g.gc.TargetFramework, pkg)
		} else {
			g.cache.AddAllPackagesForID(source.PackageSource(), req.identity.ID, g.gc.TargetFramework, packages)
		}
	}
	return packages, nil
}

// query calls the resource under the request timeout.
func (g *gatherer) query(ctx context.Context, req *gatherRequest) ([]*core.SourcePackageDependencyInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.gc.requestTimeout())
	defer cancel()

	resource := req.source.resource
	if !req.identity.HasVersion() {
		return resource.ResolvePackages(ctx, req.identity.ID, g.gc.TargetFramework, g.cacheCtx)
	}

	pkg, err := resource.ResolvePackage(ctx, req.identity, g.gc.TargetFramework, g.cacheCtx)
	if err != nil || pkg == nil {
		return nil, err
	}
	return []*core.SourcePackageDependencyInfo{pkg}, nil
}

func (g *gatherer) recordTime(source string, d time.Duration) {
	g.timeMu.Lock()
	defer g.timeMu.Unlock()
	if _, ok := g.timeTaken[source]; !ok {
		g.timeSources = append(g.timeSources, source)
	}
	g.timeTaken[source] += d
}

func (g *gatherer) logTimings(ctx context.Context) {
	g.timeMu.Lock()
	defer g.timeMu.Unlock()
	if len(g.timeSources) == 0 {
		return
	}
	g.logger.DebugContext(ctx, "Summary of time taken to gather dependencies per source:")
	for _, source := range g.timeSources {
		g.logger.DebugContext(ctx, "{Source} - {Elapsed}", source, g.timeTaken[source])
	}
}

// dropDowngrades removes versions lower than the installed version of the
// same id.
func (g *gatherer) dropDowngrades(infos []*core.SourcePackageDependencyInfo) []*core.SourcePackageDependencyInfo {
	if len(g.gc.InstalledPackages) == 0 {
		return infos
	}
	return slices.DeleteFunc(infos, func(info *core.SourcePackageDependencyInfo) bool {
		for _, installed := range g.gc.InstalledPackages {
			if strings.EqualFold(installed.ID, info.ID) && info.Version.LessThan(installed.Version) {
				return true
			}
		}
		return false
	})
}

func (g *gatherer) checkPrimaryTargets(combined []*core.SourcePackageDependencyInfo, primaryOrder []string) error {
	found := make(map[string]bool, len(combined))
	for _, info := range combined {
		found[strings.ToLower(info.ID)] = true
	}

	for _, id := range primaryOrder {
		if found[strings.ToLower(id)] {
			continue
		}
		name := id
		for _, t := range g.gc.PrimaryTargets {
			if strings.EqualFold(t.ID, id) {
				name = id + " " + t.Version.ToNormalizedString()
				break
			}
		}
		sources := make([]string, 0, len(g.primary))
		for _, s := range g.primary {
			sources = append(sources, s.repo.Source())
		}
		return &UnresolvablePackageError{Package: name, PrimarySources: sources}
	}
	return nil
}

// mergeResults flattens results in request order, keeping the first info of
// each identity. keep selects the results to include; nil includes all.
func mergeResults(results []*gatherResult, keep func(*gatherResult) bool) []*core.SourcePackageDependencyInfo {
	ordered := make([]*gatherResult, 0, len(results))
	for _, r := range results {
		if keep == nil || keep(r) {
			ordered = append(ordered, r)
		}
	}
	slices.SortStableFunc(ordered, func(a, b *gatherResult) int { return cmp.Compare(a.request.order, b.request.order) })

	seen := make(map[string]bool)
	var out []*core.SourcePackageDependencyInfo
	for _, r := range ordered {
		for _, info := range r.packages {
			if key := info.Key(); !seen[key] {
				seen[key] = true
				out = append(out, info)
			}
		}
	}
	return out
}

// closureIDs returns the ids the next pass must search: dependencies of
// searched packages, packages depending on a searched id, installed ids
// missing from the results, and dependency ids missing from the results.
func closureIDs(current, installed []*core.SourcePackageDependencyInfo, searched map[string]bool) []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if key := strings.ToLower(id); !seen[key] {
			seen[key] = true
			ids = append(ids, id)
		}
	}

	for _, info := range current {
		if searched[strings.ToLower(info.ID)] {
			for _, d := range info.Dependencies {
				add(d.ID)
			}
		}
	}
	for _, info := range current {
		if slices.ContainsFunc(info.Dependencies, func(d core.PackageDependency) bool { return searched[strings.ToLower(d.ID)] }) {
			add(info.ID)
		}
	}

	present := make(map[string]bool, len(current))
	for _, info := range current {
		present[strings.ToLower(info.ID)] = true
	}
	for _, info := range installed {
		if !present[strings.ToLower(info.ID)] {
			add(info.ID)
		}
	}
	for _, info := range current {
		for _, d := range info.Dependencies {
			if !present[strings.ToLower(d.ID)] {
				add(d.ID)
			}
		}
	}
	return ids
}
