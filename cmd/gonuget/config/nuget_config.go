// Package config reads the NuGet.config settings the CLI needs: package
// sources, credentials, package source mapping and the packages folder.
package config

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NuGetConfig represents a NuGet.config file
type NuGetConfig struct {
	XMLName                  xml.Name                  `xml:"configuration"`
	PackageSources           *PackageSources           `xml:"packageSources"`
	DisabledPackageSources   *DisabledPackageSources   `xml:"disabledPackageSources"`
	Config                   *Section                  `xml:"config"`
	PackageSourceCredentials *PackageSourceCredentials `xml:"packageSourceCredentials"`
	PackageSourceMapping     *PackageSourceMapping     `xml:"packageSourceMapping"`
}

// DisabledPackageSources contains disabled package source definitions
type DisabledPackageSources struct {
	Add []Item `xml:"add"`
}

// PackageSources contains package source definitions
type PackageSources struct {
	Add []PackageSource `xml:"add"`
}

// PackageSource represents a package source
type PackageSource struct {
	Key             string `xml:"key,attr"`
	Value           string `xml:"value,attr"`
	ProtocolVersion string `xml:"protocolVersion,attr,omitempty"`
	Enabled         string `xml:"enabled,attr,omitempty"`
}

// Protocol returns the configured protocol version, or 0 when unset.
func (s PackageSource) Protocol() int {
	v, err := strconv.Atoi(strings.TrimSpace(s.ProtocolVersion))
	if err != nil {
		return 0
	}
	return v
}

// Section contains configuration settings
type Section struct {
	Add []Item `xml:"add"`
}

// Item represents a configuration key-value pair
type Item struct {
	Key   string `xml:"key,attr"`
	Value string `xml:"value,attr"`
}

// PackageSourceCredentials holds one element per source, named after the
// source key with spaces encoded as _x0020_.
type PackageSourceCredentials struct {
	Items []SourceCredential `xml:",any"`
}

// SourceCredential represents credentials for a source
type SourceCredential struct {
	XMLName xml.Name
	Add     []Item `xml:"add"`
}

// PackageSourceMapping restricts package ids to named sources.
type PackageSourceMapping struct {
	Sources []MappedSource `xml:"packageSource"`
}

// MappedSource lists the id patterns a source serves.
type MappedSource struct {
	Key      string           `xml:"key,attr"`
	Packages []PackagePattern `xml:"package"`
}

// PackagePattern is an exact id or a prefix ending in '*'.
type PackagePattern struct {
	Pattern string `xml:"pattern,attr"`
}

// Credentials is a username and password pair for a source.
type Credentials struct {
	Username string
	Password string
}

// LoadNuGetConfig loads a NuGet.config file
func LoadNuGetConfig(path string) (*NuGetConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := ParseNuGetConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseNuGetConfig parses NuGet.config XML from a reader
func ParseNuGetConfig(r io.Reader) (*NuGetConfig, error) {
	var config NuGetConfig
	if err := xml.NewDecoder(r).Decode(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config XML: %w", err)
	}
	return &config, nil
}

// GetConfigValue gets a configuration value by key
func (c *NuGetConfig) GetConfigValue(key string) string {
	if c.Config == nil {
		return ""
	}
	for _, item := range c.Config.Add {
		if strings.EqualFold(item.Key, key) {
			return item.Value
		}
	}
	return ""
}

// IsSourceDisabled checks if a source is disabled
func (c *NuGetConfig) IsSourceDisabled(key string) bool {
	if c.DisabledPackageSources == nil {
		return false
	}
	for _, disabled := range c.DisabledPackageSources.Add {
		if strings.EqualFold(disabled.Key, key) && strings.EqualFold(disabled.Value, "true") {
			return true
		}
	}
	return false
}

// GetEnabledPackageSources returns the sources that are neither listed in
// disabledPackageSources nor marked enabled="false", in file order.
func (c *NuGetConfig) GetEnabledPackageSources() []PackageSource {
	if c.PackageSources == nil {
		return nil
	}

	var enabled []PackageSource
	for _, source := range c.PackageSources.Add {
		if c.IsSourceDisabled(source.Key) || strings.EqualFold(source.Enabled, "false") {
			continue
		}
		enabled = append(enabled, source)
	}
	return enabled
}

// GetCredentials returns the credentials configured for the source key.
func (c *NuGetConfig) GetCredentials(key string) (Credentials, bool) {
	if c.PackageSourceCredentials == nil {
		return Credentials{}, false
	}

	for _, item := range c.PackageSourceCredentials.Items {
		if !strings.EqualFold(decodeElementName(item.XMLName.Local), key) {
			continue
		}
		var creds Credentials
		for _, add := range item.Add {
			switch strings.ToLower(add.Key) {
			case "username":
				creds.Username = add.Value
			case "cleartextpassword", "password":
				creds.Password = add.Value
			}
		}
		return creds, true
	}
	return Credentials{}, false
}

// GetPackageSourceMapping returns the mapped source names in file order and
// their patterns. Both are empty when the section is absent.
func (c *NuGetConfig) GetPackageSourceMapping() ([]string, map[string][]string) {
	if c.PackageSourceMapping == nil {
		return nil, nil
	}

	var (
		names    []string
		patterns = make(map[string][]string)
	)
	for _, src := range c.PackageSourceMapping.Sources {
		if _, seen := patterns[src.Key]; !seen {
			names = append(names, src.Key)
		}
		for _, p := range src.Packages {
			patterns[src.Key] = append(patterns[src.Key], p.Pattern)
		}
		if patterns[src.Key] == nil {
			patterns[src.Key] = []string{}
		}
	}
	return names, patterns
}

func decodeElementName(name string) string {
	return strings.ReplaceAll(name, "_x0020_", " ")
}

// FindConfigFileFrom walks from startDir to the filesystem root and returns
// the first NuGet.config found, then the user config if it exists, else "".
func FindConfigFileFrom(startDir string) string {
	dir := startDir
	for {
		for _, name := range []string{"NuGet.Config", "NuGet.config", "nuget.config"} {
			configPath := filepath.Join(dir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if userConfig := GetUserConfigPath(); userConfig != "" {
		if _, err := os.Stat(userConfig); err == nil {
			return userConfig
		}
	}
	return ""
}

// Load reads explicitPath when set, otherwise the config discovered from
// startDir. With no config file anywhere it returns NewDefaultConfig and an
// empty path.
func Load(startDir, explicitPath string) (*NuGetConfig, string, error) {
	path := explicitPath
	if path == "" {
		path = FindConfigFileFrom(startDir)
	}
	if path == "" {
		return NewDefaultConfig(), "", nil
	}

	cfg, err := LoadNuGetConfig(path)
	if err != nil {
		if explicitPath == "" && errors.Is(err, fs.ErrNotExist) {
			return NewDefaultConfig(), "", nil
		}
		return nil, "", err
	}
	if cfg.PackageSources == nil {
		cfg.PackageSources = &PackageSources{Add: DefaultPackageSources()}
	}
	return cfg, path, nil
}

// GlobalPackagesFolder resolves config/globalPackagesFolder, then the
// NUGET_PACKAGES environment variable, then ~/.nuget/packages. Relative
// config values are taken relative to the config file's directory.
func (c *NuGetConfig) GlobalPackagesFolder(configPath string) string {
	if value := c.GetConfigValue("globalPackagesFolder"); value != "" {
		value = expandHome(value)
		if !filepath.IsAbs(value) && configPath != "" {
			value = filepath.Join(filepath.Dir(configPath), value)
		}
		return value
	}
	if env := os.Getenv("NUGET_PACKAGES"); env != "" {
		return env
	}
	return DefaultGlobalPackagesFolder()
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
