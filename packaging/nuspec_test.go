package packaging

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const groupedNuspec = `<?xml version="1.0" encoding="utf-8"?>
<package xmlns="http://schemas.microsoft.com/packaging/2013/05/nuspec.xsd">
  <metadata minClientVersion="2.12">
    <id>Contoso.Core</id>
    <version>1.2.0</version>
    <authors>Contoso</authors>
    <description>Core library</description>
    <dependencies>
      <group targetFramework=".NETFramework4.5">
        <dependency id="Newtonsoft.Json" version="[9.0.1, )" exclude="Build" />
      </group>
      <group targetFramework=".NETStandard2.0">
        <dependency id="System.Memory" version="4.5.0" />
        <dependency id="Newtonsoft.Json" version="12.0.1" />
      </group>
    </dependencies>
  </metadata>
</package>`

const flatNuspec = `<package><metadata><id>Legacy</id><version>1.0</version>
<dependencies><dependency id="jQuery" version="1.4.4" /></dependencies></metadata></package>`

func TestParseNuspec_Groups(t *testing.T) {
	n, err := ParseNuspec(strings.NewReader(groupedNuspec))
	require.NoError(t, err)

	assert.Equal(t, "Contoso.Core", n.Metadata.ID)
	assert.Equal(t, "1.2.0", n.Version().ToNormalizedString())
	assert.Equal(t, "2.12", n.Metadata.MinClientVersion)

	groups := n.DependencyGroups()
	require.Len(t, groups, 2)
	assert.Equal(t, ".NETFramework4.5", groups[0].TargetFramework)
	assert.Equal(t, "Build", groups[0].Dependencies[0].Exclude)
	assert.Len(t, groups[1].Dependencies, 2)
}

func TestParseNuspec_FlatDependencies(t *testing.T) {
	n, err := ParseNuspec(strings.NewReader(flatNuspec))
	require.NoError(t, err)

	groups := n.DependencyGroups()
	require.Len(t, groups, 1)
	assert.Empty(t, groups[0].TargetFramework)
	assert.Equal(t, "jQuery", groups[0].Dependencies[0].ID)
}

func TestParseNuspec_Invalid(t *testing.T) {
	for name, doc := range map[string]string{
		"malformed":   "<package><metadata>",
		"no id":       "<package><metadata><version>1.0</version></metadata></package>",
		"bad version": "<package><metadata><id>a</id><version>one</version></metadata></package>",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseNuspec(strings.NewReader(doc))
			assert.ErrorIs(t, err, ErrInvalidNuspec)
		})
	}
}

func writePackage(t *testing.T, path string, files map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

func TestReadNuspecFromPackage(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "contoso.core.1.2.0.nupkg")
	writePackage(t, good, map[string]string{
		"Contoso.Core.nuspec":   groupedNuspec,
		"lib/net45/Contoso.dll": "binary",
		"content/nested.nuspec": flatNuspec,
		"[Content_Types].xml":   "<Types/>",
	})
	n, err := ReadNuspecFromPackage(good)
	require.NoError(t, err)
	assert.Equal(t, "Contoso.Core", n.Metadata.ID)

	missing := filepath.Join(dir, "missing.nupkg")
	writePackage(t, missing, map[string]string{"lib/a.dll": "x"})
	_, err = ReadNuspecFromPackage(missing)
	assert.ErrorIs(t, err, ErrNuspecNotFound)

	two := filepath.Join(dir, "two.nupkg")
	writePackage(t, two, map[string]string{"a.nuspec": flatNuspec, "b.nuspec": flatNuspec})
	_, err = ReadNuspecFromPackage(two)
	assert.ErrorIs(t, err, ErrMultipleNuspecs)
}

func TestReadNuspecFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.nuspec")
	require.NoError(t, os.WriteFile(path, []byte(flatNuspec), 0o644))

	n, err := ReadNuspecFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Legacy", n.Metadata.ID)

	_, err = ReadNuspecFile(filepath.Join(t.TempDir(), "nope.nuspec"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
