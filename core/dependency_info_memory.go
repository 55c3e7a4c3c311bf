package core

import (
	"context"
	"strings"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// PackageListResource serves a fixed list of infos. The dependencies are
// taken as already selected, so the framework argument is ignored.
type PackageListResource struct {
	infos []*SourcePackageDependencyInfo
}

// NewPackageListResource wraps infos; the slice is copied.
func NewPackageListResource(infos ...*SourcePackageDependencyInfo) *PackageListResource {
	return &PackageListResource{infos: append([]*SourcePackageDependencyInfo(nil), infos...)}
}

func (r *PackageListResource) ResolvePackage(_ context.Context, identity PackageIdentity, _ *frameworks.NuGetFramework, _ *cache.SourceCacheContext) (*SourcePackageDependencyInfo, error) {
	return findVersion(r.infos, identity), nil
}

func (r *PackageListResource) ResolvePackages(_ context.Context, id string, _ *frameworks.NuGetFramework, _ *cache.SourceCacheContext) ([]*SourcePackageDependencyInfo, error) {
	var out []*SourcePackageDependencyInfo
	for _, info := range r.infos {
		if strings.EqualFold(info.ID, id) {
			out = append(out, info)
		}
	}
	return out, nil
}
