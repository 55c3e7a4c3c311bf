package resolver

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/observability"
)

// UninstallationContext controls what GetPackagesToBeUninstalled removes.
type UninstallationContext struct {
	// RemoveDependencies also removes dependencies no other remaining package
	// needs.
	RemoveDependencies bool

	// ForceRemove removes the target even when installed packages still
	// depend on it.
	ForceRemove bool

	Logger observability.Logger
}

// PackageGraph maps an installed package to related installed packages.
type PackageGraph struct {
	edges map[string][]core.PackageIdentity
}

func newPackageGraph() *PackageGraph {
	return &PackageGraph{edges: make(map[string][]core.PackageIdentity)}
}

func (g *PackageGraph) add(from, to core.PackageIdentity) {
	key := from.Key()
	if !slices.ContainsFunc(g.edges[key], to.Equal) {
		g.edges[key] = append(g.edges[key], to)
	}
}

// Get returns the packages related to identity in installed order.
func (g *PackageGraph) Get(identity core.PackageIdentity) []core.PackageIdentity {
	return slices.Clone(g.edges[identity.Key()])
}

// GetPackageDependents builds both directions of the dependency graph among
// installed packages. A dependency edge joins two installed packages when the
// dependency's id matches and its range admits the installed version; edges
// to packages that are not installed are dropped. Installed packages without
// an entry in infos have no outgoing edges.
func GetPackageDependents(infos []*core.PackageDependencyInfo, installed []core.PackageIdentity) (dependents, dependencies *PackageGraph) {
	byKey := make(map[string]*core.PackageDependencyInfo, len(infos))
	for _, info := range infos {
		if info == nil {
			continue
		}
		if _, ok := byKey[info.Key()]; !ok {
			byKey[info.Key()] = info
		}
	}

	dependents, dependencies = newPackageGraph(), newPackageGraph()
	for _, pkg := range installed {
		info, ok := byKey[pkg.Key()]
		if !ok {
			continue
		}
		for _, candidate := range installed {
			if candidate.Equal(pkg) {
				continue
			}
			if slices.ContainsFunc(info.Dependencies, func(d core.PackageDependency) bool { return d.Satisfies(candidate) }) {
				dependencies.add(pkg, candidate)
				dependents.add(candidate, pkg)
			}
		}
	}
	return dependents, dependencies
}

// GetPackagesToBeUninstalled is ResolveUninstall without tracing context.
func GetPackagesToBeUninstalled(target core.PackageIdentity, infos []*core.PackageDependencyInfo, installed []core.PackageIdentity, uc UninstallationContext) ([]core.PackageIdentity, error) {
	return ResolveUninstall(context.Background(), target, infos, installed, uc)
}

// ResolveUninstall returns the packages to remove, target first, each after
// every package in the result that depends on it. A target without a version
// matches the installed version of its id.
func ResolveUninstall(ctx context.Context, target core.PackageIdentity, infos []*core.PackageDependencyInfo, installed []core.PackageIdentity, uc UninstallationContext) ([]core.PackageIdentity, error) {
	logger := observability.OrNull(uc.Logger)
	ctx, span := observability.StartUninstallSpan(ctx, target.ID, versionString(target), len(installed))
	defer span.End()

	plan, err := planUninstall(target, infos, installed, uc)

	var (
		notInstalled *PackageNotInstalledError
		conflict     *UninstallConflictError
	)
	switch {
	case errors.As(err, &notInstalled):
		observability.UninstallOperationsTotal.WithLabelValues("not_installed").Inc()
	case errors.As(err, &conflict):
		observability.UninstallOperationsTotal.WithLabelValues("conflict").Inc()
	case err == nil:
		observability.UninstallOperationsTotal.WithLabelValues("success").Inc()
	}
	if err != nil {
		observability.EndSpanWithError(span, err)
		logger.DebugContext(ctx, "Cannot uninstall {PackageID}: {Error}", target.String(), err)
		return nil, err
	}

	logger.DebugContext(ctx, "Uninstall plan for {PackageID}: {Plan}", target.String(), plan)
	return plan, nil
}

func planUninstall(target core.PackageIdentity, infos []*core.PackageDependencyInfo, installed []core.PackageIdentity, uc UninstallationContext) ([]core.PackageIdentity, error) {
	resolved, ok := findInstalled(target, installed)
	if !ok {
		return nil, &PackageNotInstalledError{Package: target}
	}
	target = resolved

	dependents, dependencies := GetPackageDependents(infos, installed)

	removal := core.NewIdentitySet(target)
	if uc.RemoveDependencies {
		for changed := true; changed; {
			changed = false
			for i := 0; i < removal.Len(); i++ {
				member := removal.Items()[i]
				deps := dependencies.Get(member)
				slices.SortFunc(deps, core.PackageIdentity.Compare)

				for _, dep := range deps {
					if removal.Contains(dep) {
						continue
					}
					if allIn(dependents.Get(dep), removal) && removal.Add(dep) {
						changed = true
					}
				}
			}
		}
	}

	if !uc.ForceRemove {
		var blocking []core.PackageIdentity
		for _, d := range dependents.Get(target) {
			if !removal.Contains(d) {
				blocking = append(blocking, d)
			}
		}
		if len(blocking) > 0 {
			return nil, &UninstallConflictError{Package: target, Dependents: blocking}
		}
	}

	return removal.Items(), nil
}

func findInstalled(target core.PackageIdentity, installed []core.PackageIdentity) (core.PackageIdentity, bool) {
	for _, p := range installed {
		if target.HasVersion() && p.Equal(target) {
			return p, true
		}
		if !target.HasVersion() && strings.EqualFold(p.ID, target.ID) {
			return p, true
		}
	}
	return core.PackageIdentity{}, false
}

func allIn(ids []core.PackageIdentity, set *core.IdentitySet) bool {
	for _, id := range ids {
		if !set.Contains(id) {
			return false
		}
	}
	return true
}

func versionString(p core.PackageIdentity) string {
	if !p.HasVersion() {
		return ""
	}
	return p.Version.ToNormalizedString()
}
