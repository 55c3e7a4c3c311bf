package core

import (
	"context"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// DependencyInfoResource reads dependency information from one source.
// Implementations must be safe for concurrent use.
type DependencyInfoResource interface {
	// ResolvePackage returns the exact identity, or nil and no error when the
	// source does not have it.
	ResolvePackage(ctx context.Context, identity PackageIdentity, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) (*SourcePackageDependencyInfo, error)

	// ResolvePackages returns every version of id the source has. An unknown
	// id yields an empty result and no error.
	ResolvePackages(ctx context.Context, id string, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) ([]*SourcePackageDependencyInfo, error)
}

// ResourceProvider creates the DependencyInfoResource for sources it
// understands. TryCreate reports false when the source belongs to another
// provider.
type ResourceProvider interface {
	Name() string
	TryCreate(ctx context.Context, repo *SourceRepository) (DependencyInfoResource, bool, error)
}

// findVersion returns the info in infos equal to identity.
func findVersion(infos []*SourcePackageDependencyInfo, identity PackageIdentity) *SourcePackageDependencyInfo {
	for _, info := range infos {
		if info.PackageIdentity.Equal(identity) {
			return info
		}
	}
	return nil
}
