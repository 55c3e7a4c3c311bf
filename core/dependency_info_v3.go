package core

import (
	"context"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/frameworks"
	"github.com/willibrandon/gonuget-pm/protocol/v3"
	"github.com/willibrandon/gonuget-pm/version"
)

// RegistrationResourceV3 reads dependency information from a v3 feed's
// registration resource.
type RegistrationResourceV3 struct {
	name         string
	sourceURL    string
	registration *v3.RegistrationClient
}

// NewRegistrationResourceV3 creates a resource for sourceURL, attributing
// results to name.
func NewRegistrationResourceV3(name, sourceURL string, registration *v3.RegistrationClient) *RegistrationResourceV3 {
	return &RegistrationResourceV3{name: name, sourceURL: sourceURL, registration: registration}
}

// ResolvePackage reads the registration index of the id and picks the
// version. Registration has no cheaper single-version lookup.
func (r *RegistrationResourceV3) ResolvePackage(ctx context.Context, identity PackageIdentity, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) (*SourcePackageDependencyInfo, error) {
	infos, err := r.ResolvePackages(ctx, identity.ID, framework, cacheCtx)
	if err != nil {
		return nil, err
	}
	return findVersion(infos, identity), nil
}

func (r *RegistrationResourceV3) ResolvePackages(ctx context.Context, id string, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) ([]*SourcePackageDependencyInfo, error) {
	ctx = cache.WithCacheContext(ctx, cacheCtx)
	leaves, err := r.registration.GetLeaves(ctx, r.sourceURL, id)
	if err != nil {
		return nil, err
	}

	infos := make([]*SourcePackageDependencyInfo, 0, len(leaves))
	for _, leaf := range leaves {
		if info := r.toInfo(leaf, framework); info != nil {
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (r *RegistrationResourceV3) toInfo(leaf v3.RegistrationLeaf, framework *frameworks.NuGetFramework) *SourcePackageDependencyInfo {
	entry := leaf.CatalogEntry
	v, err := version.Parse(entry.Version)
	if err != nil {
		return nil
	}

	groups := make([]DependencyGroup, 0, len(entry.DependencyGroups))
	for _, g := range entry.DependencyGroups {
		group := DependencyGroup{TargetFramework: g.TargetFramework}
		for _, d := range g.Dependencies {
			if dep, err := NewPackageDependency(d.ID, d.Range); err == nil {
				group.Dependencies = append(group.Dependencies, dep)
			}
		}
		groups = append(groups, group)
	}

	info := NewSourcePackageDependencyInfo(PackageIdentity{ID: entry.PackageID, Version: v}, r.name,
		SelectDependencies(groups, framework)...)
	info.Listed = entry.IsListed()
	info.DownloadURI = leaf.PackageContent
	info.PackageHash = entry.PackageHash
	return info
}
