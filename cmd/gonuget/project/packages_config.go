// Package project reads packages.config, the installed package list of a
// packages.config style project.
package project

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/willibrandon/gonuget-pm/core"
	"github.com/willibrandon/gonuget-pm/frameworks"
)

// PackagesConfigFileName is the conventional file name.
const PackagesConfigFileName = "packages.config"

// PackagesConfig represents a packages.config file.
type PackagesConfig struct {
	XMLName  xml.Name       `xml:"packages"`
	Packages []PackageEntry `xml:"package"`

	// Path is the file the config was loaded from, empty when parsed from a
	// reader.
	Path string `xml:"-"`
}

// PackageEntry is one installed package.
type PackageEntry struct {
	ID                    string `xml:"id,attr"`
	Version               string `xml:"version,attr"`
	TargetFramework       string `xml:"targetFramework,attr,omitempty"`
	AllowedVersions       string `xml:"allowedVersions,attr,omitempty"`
	DevelopmentDependency bool   `xml:"developmentDependency,attr,omitempty"`
}

// LoadPackagesConfig loads and parses a packages.config file.
func LoadPackagesConfig(path string) (*PackagesConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open packages config: %w", err)
	}
	defer func() { _ = f.Close() }()

	pc, err := ParsePackagesConfig(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	pc.Path = path
	return pc, nil
}

// ParsePackagesConfig parses packages.config XML from a reader.
func ParsePackagesConfig(r io.Reader) (*PackagesConfig, error) {
	var pc PackagesConfig
	if err := xml.NewDecoder(r).Decode(&pc); err != nil {
		return nil, fmt.Errorf("failed to parse packages config XML: %w", err)
	}
	return &pc, nil
}

// Identities returns the installed packages in file order.
func (pc *PackagesConfig) Identities() ([]core.PackageIdentity, error) {
	ids := make([]core.PackageIdentity, 0, len(pc.Packages))
	for _, p := range pc.Packages {
		if p.Version == "" {
			return nil, fmt.Errorf("package %s has no version", p.ID)
		}
		id, err := core.NewPackageIdentity(p.ID, p.Version)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// TargetFramework returns the framework of the first entry that names one,
// or nil.
func (pc *PackagesConfig) TargetFramework() (*frameworks.NuGetFramework, error) {
	for _, p := range pc.Packages {
		if p.TargetFramework != "" {
			return frameworks.Parse(p.TargetFramework)
		}
	}
	return nil, nil
}

// DefaultPackagesDirectory returns the solution-level "packages" folder that
// sits next to the project folder holding packages.config.
func (pc *PackagesConfig) DefaultPackagesDirectory() string {
	if pc.Path == "" {
		return "packages"
	}
	projectDir := filepath.Dir(pc.Path)
	sibling := filepath.Join(projectDir, "packages")
	if info, err := os.Stat(sibling); err == nil && info.IsDir() {
		return sibling
	}
	return filepath.Join(filepath.Dir(projectDir), "packages")
}
