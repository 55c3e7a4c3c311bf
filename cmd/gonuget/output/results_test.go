package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/version"
)

func sampleInfos() []*core.SourcePackageDependencyInfo {
	dep := core.PackageDependency{ID: "jQuery", VersionRange: version.MustParseRange("[1.4.4, )")}
	unlisted := core.NewSourcePackageDependencyInfo(core.MustPackageIdentity("jQuery", "1.4.4"), "local")
	unlisted.Listed = false
	return []*core.SourcePackageDependencyInfo{
		core.NewSourcePackageDependencyInfo(core.MustPackageIdentity("jQuery.Validation", "1.19.5"), "nuget.org", dep),
		core.NewSourcePackageDependencyInfo(core.MustPackageIdentity("jquery", "3.7.1"), "nuget.org"),
		unlisted,
	}
}

func TestNewGatherOutput_GroupsByID(t *testing.T) {
	out := NewGatherOutput([]string{"jQuery.Validation.1.19.5"}, "net472", sampleInfos(), time.Now())

	require.Len(t, out.Packages, 2)
	assert.Equal(t, "jQuery", out.Packages[0].ID)
	require.Len(t, out.Packages[0].Versions, 2)
	assert.Equal(t, "1.4.4", out.Packages[0].Versions[0].Version)
	assert.False(t, out.Packages[0].Versions[0].Listed)
	assert.Equal(t, "3.7.1", out.Packages[0].Versions[1].Version)

	assert.Equal(t, "jQuery.Validation", out.Packages[1].ID)
	assert.Equal(t, []string{"jQuery [1.4.4, )"}, out.Packages[1].Versions[0].Dependencies)
}

func TestGatherOutput_Formats(t *testing.T) {
	DisableColors()
	out := NewGatherOutput([]string{"jQuery.Validation.1.19.5"}, "net472", sampleInfos(), time.Now())

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatText, out))
		assert.Contains(t, buf.String(), "Gathered 3 package(s) for jQuery.Validation.1.19.5 (net472)")
		assert.Contains(t, buf.String(), "  1.4.4  local (unlisted)\n")
		assert.Contains(t, buf.String(), "    -> jQuery [1.4.4, )\n")
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatJSON, out))

		var decoded GatherOutput
		require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, CurrentSchemaVersion, decoded.SchemaVersion)
		assert.Len(t, decoded.Packages, 2)
	})

	t.Run("yaml", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatYAML, out))
		assert.Contains(t, buf.String(), "schemaVersion: 1.0.0")

		var decoded GatherOutput
		require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
		assert.Equal(t, "nuget.org", decoded.Packages[1].Versions[0].Source)
	})
}

func TestUninstallOutput(t *testing.T) {
	DisableColors()
	plan := []core.PackageIdentity{
		core.MustPackageIdentity("jQuery.Validation", "1.19.5"),
		core.MustPackageIdentity("jQuery", "3.7.1"),
	}
	out := NewUninstallOutput(core.PackageIdentity{ID: "jQuery.Validation"}, plan, time.Now())

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, out))
	assert.Equal(t, "Packages to uninstall for 'jQuery.Validation', in order:\n  1. jQuery.Validation.1.19.5\n  2. jQuery.3.7.1\n", buf.String())

	buf.Reset()
	require.NoError(t, Write(&buf, FormatJSON, out))
	assert.Contains(t, buf.String(), `"packages": [`)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{
		"":     FormatText,
		"TEXT": FormatText,
		"json": FormatJSON,
		"yml":  FormatYAML,
		"yaml": FormatYAML,
	}
	for in, want := range tests {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}
