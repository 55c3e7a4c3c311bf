package core

import (
	"context"

	"github.com/willibrandon/gonuget-pm/cache"
	"github.com/willibrandon/gonuget-pm/frameworks"
	"github.com/willibrandon/gonuget-pm/protocol/v2"
	"github.com/willibrandon/gonuget-pm/version"
)

// ODataResourceV2 reads dependency information from a v2 OData feed.
type ODataResourceV2 struct {
	name    string
	feedURL string
	feed    *v2.FeedClient
}

// NewODataResourceV2 creates a resource for feedURL, attributing results to
// name.
func NewODataResourceV2(name, feedURL string, feed *v2.FeedClient) *ODataResourceV2 {
	return &ODataResourceV2{name: name, feedURL: feedURL, feed: feed}
}

func (r *ODataResourceV2) ResolvePackage(ctx context.Context, identity PackageIdentity, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) (*SourcePackageDependencyInfo, error) {
	ctx = cache.WithCacheContext(ctx, cacheCtx)
	entry, err := r.feed.GetPackage(ctx, r.feedURL, identity.ID, identity.Version.ToNormalizedString())
	if err != nil || entry == nil {
		return nil, err
	}
	return r.toInfo(entry, framework), nil
}

func (r *ODataResourceV2) ResolvePackages(ctx context.Context, id string, framework *frameworks.NuGetFramework, cacheCtx *cache.SourceCacheContext) ([]*SourcePackageDependencyInfo, error) {
	ctx = cache.WithCacheContext(ctx, cacheCtx)
	entries, err := r.feed.FindPackagesByID(ctx, r.feedURL, id)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(entries))
	infos := make([]*SourcePackageDependencyInfo, 0, len(entries))
	for i := range entries {
		info := r.toInfo(&entries[i], framework)
		if info == nil || seen[info.Key()] {
			continue
		}
		seen[info.Key()] = true
		infos = append(infos, info)
	}
	return infos, nil
}

func (r *ODataResourceV2) toInfo(entry *v2.Entry, framework *frameworks.NuGetFramework) *SourcePackageDependencyInfo {
	props := &entry.Properties
	raw := props.NormalizedVer
	if raw == "" {
		raw = props.Version
	}
	v, err := version.Parse(raw)
	if err != nil {
		return nil
	}

	var groups []DependencyGroup
	for _, g := range v2.ParseDependencies(props.Dependencies) {
		group := DependencyGroup{TargetFramework: g.TargetFramework}
		for _, d := range g.Dependencies {
			if dep, err := NewPackageDependency(d.ID, d.Range); err == nil {
				group.Dependencies = append(group.Dependencies, dep)
			}
		}
		groups = append(groups, group)
	}

	info := NewSourcePackageDependencyInfo(PackageIdentity{ID: entry.PackageID(), Version: v}, r.name,
		SelectDependencies(groups, framework)...)
	info.Listed = props.IsListed()
	info.DownloadURI = entry.Content.Src
	info.PackageHash = props.PackageHash
	return info
}
