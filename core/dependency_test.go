package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/willibrandon/gonuget-pm/frameworks"
)

func mustDependency(t *testing.T, id, rng string) PackageDependency {
	t.Helper()
	d, err := NewPackageDependency(id, rng)
	require.NoError(t, err)
	return d
}

func TestPackageDependency_Satisfies(t *testing.T) {
	d := mustDependency(t, "Json", "[1.0.0, 2.0.0)")

	assert.True(t, d.Satisfies(MustPackageIdentity("json", "1.5.0")))
	assert.False(t, d.Satisfies(MustPackageIdentity("json", "2.0.0")))
	assert.False(t, d.Satisfies(MustPackageIdentity("other", "1.5.0")))

	anyVersion := mustDependency(t, "Json", "")
	assert.True(t, anyVersion.Satisfies(MustPackageIdentity("JSON", "99.0.0")))
	assert.Equal(t, "Json", anyVersion.String())

	_, err := NewPackageDependency("Json", "[bad")
	assert.Error(t, err)
}

func TestPackageDependencyInfo_DependsOn(t *testing.T) {
	info := NewPackageDependencyInfo(MustPackageIdentity("a", "1.0.0"), mustDependency(t, "B", "1.0.0"))
	assert.True(t, info.DependsOn("b"))
	assert.False(t, info.DependsOn("c"))
}

func TestSelectDependencies(t *testing.T) {
	groups := []DependencyGroup{
		{TargetFramework: ".NETFramework4.5", Dependencies: []PackageDependency{mustDependency(t, "net45dep", "1.0.0")}},
		{TargetFramework: ".NETStandard2.0", Dependencies: []PackageDependency{mustDependency(t, "nsdep", "1.0.0")}},
		{TargetFramework: "not a framework", Dependencies: []PackageDependency{mustDependency(t, "broken", "1.0.0")}},
	}

	tests := []struct {
		framework string
		want      string
	}{
		{"net48", "net45dep"},
		{"net451", "net45dep"},
		{"netcoreapp3.1", "nsdep"},
		{"net8.0", "nsdep"},
	}
	for _, tt := range tests {
		t.Run(tt.framework, func(t *testing.T) {
			deps := SelectDependencies(groups, frameworks.MustParse(tt.framework))
			require.Len(t, deps, 1)
			assert.Equal(t, tt.want, deps[0].ID)
		})
	}

	assert.Nil(t, SelectDependencies(groups[:1], frameworks.MustParse("netstandard1.0")))
	assert.Equal(t, "net45dep", SelectDependencies(groups, nil)[0].ID)

	withUntargeted := append([]DependencyGroup{{Dependencies: []PackageDependency{mustDependency(t, "all", "")}}}, groups...)
	assert.Equal(t, "all", SelectDependencies(withUntargeted, nil)[0].ID)
	assert.Equal(t, "net45dep", SelectDependencies(withUntargeted, frameworks.MustParse("net45"))[0].ID)
	assert.Equal(t, "all", SelectDependencies(withUntargeted, frameworks.MustParse("netcoreapp1.0"))[0].ID)
}
