package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

const sampleConfig = `<?xml version="1.0" encoding="utf-8"?>
<configuration>
  <packageSources>
    <add key="nuget.org" value="https://api.nuget.org/v3/index.json" protocolVersion="3" />
    <add key="Contoso Feed" value="https://contoso.example/nuget/v2" protocolVersion="2" />
    <add key="local" value="./feed" />
    <add key="off" value="https://off.example/index.json" enabled="false" />
  </packageSources>
  <disabledPackageSources>
    <add key="local" value="true" />
  </disabledPackageSources>
  <packageSourceCredentials>
    <Contoso_x0020_Feed>
      <add key="Username" value="alice" />
      <add key="ClearTextPassword" value="secret" />
    </Contoso_x0020_Feed>
  </packageSourceCredentials>
  <packageSourceMapping>
    <packageSource key="nuget.org">
      <package pattern="*" />
    </packageSource>
    <packageSource key="Contoso Feed">
      <package pattern="Contoso.*" />
      <package pattern="Fabrikam.Core" />
    </packageSource>
  </packageSourceMapping>
  <config>
    <add key="globalPackagesFolder" value="packages-cache" />
  </config>
</configuration>`

func TestParseNuGetConfig(t *testing.T) {
	cfg, err := ParseNuGetConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("ParseNuGetConfig() error = %v", err)
	}

	if len(cfg.PackageSources.Add) != 4 {
		t.Fatalf("expected 4 package sources, got %d", len(cfg.PackageSources.Add))
	}
	if got := cfg.PackageSources.Add[1].Protocol(); got != 2 {
		t.Errorf("Protocol() = %d, want 2", got)
	}
	if got := cfg.PackageSources.Add[2].Protocol(); got != 0 {
		t.Errorf("Protocol() = %d, want 0", got)
	}
	if got := cfg.GetConfigValue("GlobalPackagesFolder"); got != "packages-cache" {
		t.Errorf("GetConfigValue() = %q, want %q", got, "packages-cache")
	}
}

func TestNuGetConfig_GetEnabledPackageSources(t *testing.T) {
	cfg, err := ParseNuGetConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("ParseNuGetConfig() error = %v", err)
	}

	var keys []string
	for _, s := range cfg.GetEnabledPackageSources() {
		keys = append(keys, s.Key)
	}
	want := []string{"nuget.org", "Contoso Feed"}
	if !reflect.DeepEqual(keys, want) {
		t.Errorf("enabled sources = %v, want %v", keys, want)
	}
}

func TestNuGetConfig_GetCredentials(t *testing.T) {
	cfg, err := ParseNuGetConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("ParseNuGetConfig() error = %v", err)
	}

	creds, ok := cfg.GetCredentials("contoso feed")
	if !ok {
		t.Fatal("expected credentials for Contoso Feed")
	}
	if creds.Username != "alice" || creds.Password != "secret" {
		t.Errorf("credentials = %+v", creds)
	}

	if _, ok := cfg.GetCredentials("nuget.org"); ok {
		t.Error("nuget.org should have no credentials")
	}
}

func TestNuGetConfig_GetPackageSourceMapping(t *testing.T) {
	cfg, err := ParseNuGetConfig(strings.NewReader(sampleConfig))
	if err != nil {
		t.Fatalf("ParseNuGetConfig() error = %v", err)
	}

	names, patterns := cfg.GetPackageSourceMapping()
	if !reflect.DeepEqual(names, []string{"nuget.org", "Contoso Feed"}) {
		t.Errorf("names = %v", names)
	}
	want := map[string][]string{
		"nuget.org":    {"*"},
		"Contoso Feed": {"Contoso.*", "Fabrikam.Core"},
	}
	if !reflect.DeepEqual(patterns, want) {
		t.Errorf("patterns = %v, want %v", patterns, want)
	}

	empty := NewDefaultConfig()
	if names, patterns := empty.GetPackageSourceMapping(); names != nil || patterns != nil {
		t.Errorf("expected no mapping, got %v %v", names, patterns)
	}
}

func TestParseNuGetConfig_InvalidXML(t *testing.T) {
	if _, err := ParseNuGetConfig(strings.NewReader("<configuration><packageSources>")); err == nil {
		t.Error("expected error for invalid XML")
	}
}

func TestLoadNuGetConfig_NotFound(t *testing.T) {
	if _, err := LoadNuGetConfig(filepath.Join(t.TempDir(), "missing.config")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFindConfigFileFrom_WalksUpward(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	root := t.TempDir()
	nested := filepath.Join(root, "src", "app")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	configPath := filepath.Join(root, "NuGet.Config")
	if err := os.WriteFile(configPath, []byte(sampleConfig), 0o644); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFileFrom(nested); got != configPath {
		t.Errorf("FindConfigFileFrom() = %q, want %q", got, configPath)
	}
}

func TestLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	t.Run("no config anywhere", func(t *testing.T) {
		cfg, path, err := Load(t.TempDir(), "")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if path != "" {
			t.Errorf("path = %q, want empty", path)
		}
		if got := cfg.GetEnabledPackageSources(); len(got) != 1 || got[0].Key != "nuget.org" {
			t.Errorf("sources = %v, want the default source", got)
		}
	})

	t.Run("explicit file", func(t *testing.T) {
		dir := t.TempDir()
		explicit := filepath.Join(dir, "custom.config")
		if err := os.WriteFile(explicit, []byte(sampleConfig), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg, path, err := Load(t.TempDir(), explicit)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if path != explicit {
			t.Errorf("path = %q, want %q", path, explicit)
		}
		if got := cfg.GlobalPackagesFolder(path); got != filepath.Join(dir, "packages-cache") {
			t.Errorf("GlobalPackagesFolder() = %q", got)
		}
	})

	t.Run("explicit file missing", func(t *testing.T) {
		if _, _, err := Load(t.TempDir(), filepath.Join(t.TempDir(), "missing.config")); err == nil {
			t.Error("expected error for a missing explicit config")
		}
	})

	t.Run("file without sources gets defaults", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "NuGet.config"), []byte("<configuration />"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, _, err := Load(dir, "")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got := cfg.GetEnabledPackageSources(); len(got) != 1 {
			t.Errorf("sources = %v, want the default source", got)
		}
	})
}

func TestGlobalPackagesFolder_Fallbacks(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := NewDefaultConfig()

	t.Setenv("NUGET_PACKAGES", "/tmp/nuget-packages")
	if got := cfg.GlobalPackagesFolder(""); got != "/tmp/nuget-packages" {
		t.Errorf("GlobalPackagesFolder() = %q", got)
	}

	t.Setenv("NUGET_PACKAGES", "")
	if got := cfg.GlobalPackagesFolder(""); got != filepath.Join(home, ".nuget", "packages") {
		t.Errorf("GlobalPackagesFolder() = %q", got)
	}

	cfg.Config = &Section{Add: []Item{{Key: "globalPackagesFolder", Value: "~/cache"}}}
	if got := cfg.GlobalPackagesFolder("/etc/nuget/NuGet.config"); got != filepath.Join(home, "cache") {
		t.Errorf("GlobalPackagesFolder() = %q", got)
	}
}

func TestGetUserConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	want := filepath.Join(home, ".nuget", "NuGet", "NuGet.Config")
	if got := GetUserConfigPath(); got != want {
		t.Errorf("GetUserConfigPath() = %q, want %q", got, want)
	}
}
