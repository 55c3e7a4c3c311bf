package resolver

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

func TestGatherCache_SingleVersionLookup(t *testing.T) {
	c := NewGatherCache()
	source := core.PackageSource{Name: "feed", Source: "https://feed/index.json"}
	a1 := depInfo("a", "1.0.0")

	assert.False(t, c.GetPackage(source, pkg("a", "1.0.0"), net451).HasEntry)

	c.AddPackageFromSingleVersionLookup(source, pkg("a", "1.0.0"), net451, a1)
	got := c.GetPackage(source, pkg("A", "1.0.0"), net451)
	require.True(t, got.HasEntry)
	assert.Equal(t, []*core.SourcePackageDependencyInfo{a1}, got.Packages)

	// a lookup that found nothing is still an entry
	c.AddPackageFromSingleVersionLookup(source, pkg("a", "2.0.0"), net451, nil)
	got = c.GetPackage(source, pkg("a", "2.0.0"), net451)
	assert.True(t, got.HasEntry)
	assert.Empty(t, got.Packages)
}

func TestGatherCache_KeyedBySourceAndFramework(t *testing.T) {
	c := NewGatherCache()
	source := core.PackageSource{Name: "feed", Source: "https://Feed/index.json"}
	c.AddPackageFromSingleVersionLookup(source, pkg("a", "1.0.0"), net451, depInfo("a", "1.0.0"))

	renamed := core.PackageSource{Name: "other name", Source: "https://feed/index.json"}
	assert.True(t, c.GetPackage(renamed, pkg("a", "1.0.0"), net451).HasEntry)

	other := core.PackageSource{Name: "feed", Source: "https://mirror/index.json"}
	assert.False(t, c.GetPackage(other, pkg("a", "1.0.0"), net451).HasEntry)
	assert.False(t, c.GetPackage(source, pkg("a", "1.0.0"), frameworks.MustParse("net8.0")).HasEntry)
}

func TestGatherCache_AllVersionsLookup(t *testing.T) {
	c := NewGatherCache()
	source := core.PackageSource{Source: "local"}
	infos := []*core.SourcePackageDependencyInfo{depInfo("b", "1.0.0"), depInfo("b", "2.0.0")}

	assert.False(t, c.GetPackages(source, "b", net451).HasEntry)
	c.AddAllPackagesForID(source, "B", net451, infos)

	got := c.GetPackages(source, "b", net451)
	require.True(t, got.HasEntry)
	assert.Equal(t, infos, got.Packages)

	// exact lookups are answered from the all-versions entry
	single := c.GetPackage(source, pkg("b", "2.0.0"), net451)
	require.True(t, single.HasEntry)
	assert.Equal(t, []*core.SourcePackageDependencyInfo{infos[1]}, single.Packages)

	missing := c.GetPackage(source, pkg("b", "3.0.0"), net451)
	assert.True(t, missing.HasEntry)
	assert.Empty(t, missing.Packages)

	// the stored slice is independent of the caller's
	infos[0] = nil
	assert.NotNil(t, c.GetPackages(source, "b", net451).Packages[0])
}

func TestGatherCache_ConcurrentAccess(t *testing.T) {
	c := NewGatherCache()
	source := core.PackageSource{Source: "local"}

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%2 == 0 {
				c.AddAllPackagesForID(source, "a", net451, []*core.SourcePackageDependencyInfo{depInfo("a", "1.0.0")})
			} else {
				c.GetPackages(source, "a", net451)
			}
		}()
	}
	wg.Wait()

	assert.True(t, c.GetPackages(source, "a", net451).HasEntry)
}
