package resolver

import (
	"strings"
	"sync"

	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// GatherCache remembers source query results across Gather calls, including
// lookups that found nothing. It is safe for concurrent use.
type GatherCache struct {
	mu       sync.RWMutex
	single   map[string]*core.SourcePackageDependencyInfo
	allForID map[string][]*core.SourcePackageDependencyInfo
}

// GatherCacheResult is a cache lookup. HasEntry is false when the query was
// never made; an entry may hold no packages.
type GatherCacheResult struct {
	HasEntry bool
	Packages []*core.SourcePackageDependencyInfo
}

// NewGatherCache returns an empty cache.
func NewGatherCache() *GatherCache {
	return &GatherCache{
		single:   make(map[string]*core.SourcePackageDependencyInfo),
		allForID: make(map[string][]*core.SourcePackageDependencyInfo),
	}
}

func cacheKey(source core.PackageSource, key string, framework *frameworks.NuGetFramework) string {
	return strings.ToLower(source.Source) + "\x00" + key + "\x00" + framework.ShortFolderName()
}

// AddPackageFromSingleVersionLookup records the result of an exact lookup.
// A nil pkg records that the source does not have identity.
func (c *GatherCache) AddPackageFromSingleVersionLookup(source core.PackageSource, identity core.PackageIdentity, framework *frameworks.NuGetFramework, pkg *core.SourcePackageDependencyInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.single[cacheKey(source, identity.Key(), framework)] = pkg
}

// AddAllPackagesForID records the result of an all-versions lookup.
func (c *GatherCache) AddAllPackagesForID(source core.PackageSource, id string, framework *frameworks.NuGetFramework, pkgs []*core.SourcePackageDependencyInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.allForID[cacheKey(source, strings.ToLower(id), framework)] = append([]*core.SourcePackageDependencyInfo(nil), pkgs...)
}

// GetPackage returns a recorded exact lookup, falling back to a recorded
// all-versions lookup of the same id.
func (c *GatherCache) GetPackage(source core.PackageSource, identity core.PackageIdentity, framework *frameworks.NuGetFramework) GatherCacheResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if pkg, ok := c.single[cacheKey(source, identity.Key(), framework)]; ok {
		if pkg == nil {
			return GatherCacheResult{HasEntry: true}
		}
		return GatherCacheResult{HasEntry: true, Packages: []*core.SourcePackageDependencyInfo{pkg}}
	}

	all, ok := c.allForID[cacheKey(source, strings.ToLower(identity.ID), framework)]
	if !ok {
		return GatherCacheResult{}
	}
	for _, pkg := range all {
		if pkg.PackageIdentity.Equal(identity) {
			return GatherCacheResult{HasEntry: true, Packages: []*core.SourcePackageDependencyInfo{pkg}}
		}
	}
	return GatherCacheResult{HasEntry: true}
}

// GetPackages returns a recorded all-versions lookup.
func (c *GatherCache) GetPackages(source core.PackageSource, id string, framework *frameworks.NuGetFramework) GatherCacheResult {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all, ok := c.allForID[cacheKey(source, strings.ToLower(id), framework)]
	if !ok {
		return GatherCacheResult{}
	}
	return GatherCacheResult{HasEntry: true, Packages: append([]*core.SourcePackageDependencyInfo(nil), all...)}
}
