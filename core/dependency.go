package core

import (
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-pm/frameworks"
	"github.com/willibrandon/gonuget-pm/version"
)

// PackageDependency is one dependency edge: an id and the acceptable range.
// A nil VersionRange accepts any version.
type PackageDependency struct {
	ID           string
	VersionRange *version.Range
}

// NewPackageDependency parses rangeString; an empty string means any version.
func NewPackageDependency(id, rangeString string) (PackageDependency, error) {
	if strings.TrimSpace(id) == "" {
		return PackageDependency{}, fmt.Errorf("dependency id cannot be empty")
	}
	if strings.TrimSpace(rangeString) == "" {
		return PackageDependency{ID: id}, nil
	}

	r, err := version.ParseRange(rangeString)
	if err != nil {
		return PackageDependency{}, fmt.Errorf("dependency %s: %w", id, err)
	}
	return PackageDependency{ID: id, VersionRange: r}, nil
}

// Satisfies reports whether identity has this dependency's id and a version
// inside its range.
func (d PackageDependency) Satisfies(identity PackageIdentity) bool {
	return strings.EqualFold(d.ID, identity.ID) && d.VersionRange.Satisfies(identity.Version)
}

func (d PackageDependency) String() string {
	if d.VersionRange == nil {
		return d.ID
	}
	return d.ID + " " + d.VersionRange.String()
}

// PackageDependencyInfo is one concrete package version and the dependencies
// it declares for the framework it was resolved against, in declared order.
type PackageDependencyInfo struct {
	PackageIdentity
	Dependencies []PackageDependency
}

// NewPackageDependencyInfo builds an info from an identity and its dependencies.
func NewPackageDependencyInfo(identity PackageIdentity, deps ...PackageDependency) *PackageDependencyInfo {
	return &PackageDependencyInfo{PackageIdentity: identity, Dependencies: deps}
}

// DependsOn reports whether the package declares a dependency on id.
func (p *PackageDependencyInfo) DependsOn(id string) bool {
	for _, d := range p.Dependencies {
		if strings.EqualFold(d.ID, id) {
			return true
		}
	}
	return false
}

// SourcePackageDependencyInfo is a PackageDependencyInfo as returned by a
// particular source.
type SourcePackageDependencyInfo struct {
	PackageDependencyInfo

	// Listed is false for packages hidden from search on their feed.
	Listed bool

	// Source is the name of the source the info was read from.
	Source string

	DownloadURI string
	PackageHash string
}

// NewSourcePackageDependencyInfo returns a listed info attributed to source.
func NewSourcePackageDependencyInfo(identity PackageIdentity, source string, deps ...PackageDependency) *SourcePackageDependencyInfo {
	return &SourcePackageDependencyInfo{
		PackageDependencyInfo: PackageDependencyInfo{PackageIdentity: identity, Dependencies: deps},
		Listed:                true,
		Source:                source,
	}
}

// DependencyGroup is the dependency list a package declares for one target
// framework. An empty TargetFramework applies to every framework.
type DependencyGroup struct {
	TargetFramework string
	Dependencies    []PackageDependency
}

// SelectDependencies returns the dependencies of the group nearest to
// framework. A nil framework selects the untargeted group, or the first group
// when every group is targeted. Groups whose framework cannot be parsed are
// skipped.
func SelectDependencies(groups []DependencyGroup, framework *frameworks.NuGetFramework) []PackageDependency {
	if len(groups) == 0 {
		return nil
	}

	if framework.IsAny() {
		for _, g := range groups {
			if g.TargetFramework == "" || strings.EqualFold(g.TargetFramework, "any") {
				return g.Dependencies
			}
		}
		return groups[0].Dependencies
	}

	candidates := make([]*frameworks.NuGetFramework, 0, len(groups))
	owners := make(map[*frameworks.NuGetFramework]int, len(groups))
	for i, g := range groups {
		// each group gets its own pointer so owners can map back to it
		fw := &frameworks.NuGetFramework{Framework: frameworks.Any}
		if g.TargetFramework != "" {
			parsed, err := frameworks.Parse(g.TargetFramework)
			if err != nil {
				continue
			}
			fw = parsed
		}
		candidates = append(candidates, fw)
		owners[fw] = i
	}

	nearest := frameworks.GetNearest(framework, candidates)
	if nearest == nil {
		return nil
	}
	return groups[owners[nearest]].Dependencies
}
