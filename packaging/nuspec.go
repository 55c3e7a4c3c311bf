// Package packaging reads package manifests (.nuspec), either loose on disk
// or inside a .nupkg archive.
package packaging

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/willibrandon/gonuget-pm/version"
)

var (
	ErrInvalidNuspec   = errors.New("invalid nuspec")
	ErrNuspecNotFound  = errors.New("nuspec file not found in package")
	ErrMultipleNuspecs = errors.New("package contains multiple nuspec files")
)

// Nuspec is a parsed .nuspec manifest. Only the fields dependency
// resolution reads are mapped.
type Nuspec struct {
	XMLName  xml.Name       `xml:"package"`
	Metadata NuspecMetadata `xml:"metadata"`
}

// NuspecMetadata is the metadata element.
type NuspecMetadata struct {
	ID                    string               `xml:"id"`
	Version               string               `xml:"version"`
	Title                 string               `xml:"title"`
	Authors               string               `xml:"authors"`
	Description           string               `xml:"description"`
	DevelopmentDependency bool                 `xml:"developmentDependency"`
	MinClientVersion      string               `xml:"minClientVersion,attr"`
	Dependencies          *DependenciesElement `xml:"dependencies"`
}

// DependenciesElement holds grouped dependencies, or a flat legacy list that
// applies to every framework.
type DependenciesElement struct {
	Groups       []DependencyGroup `xml:"group"`
	Dependencies []Dependency      `xml:"dependency"`
}

// DependencyGroup is a <group>; an empty TargetFramework applies to all.
type DependencyGroup struct {
	TargetFramework string       `xml:"targetFramework,attr"`
	Dependencies    []Dependency `xml:"dependency"`
}

// Dependency is a <dependency>; Version holds a range string.
type Dependency struct {
	ID      string `xml:"id,attr"`
	Version string `xml:"version,attr"`
	Include string `xml:"include,attr"`
	Exclude string `xml:"exclude,attr"`
}

// ParseNuspec decodes a manifest and checks it has an id and a valid version.
func ParseNuspec(r io.Reader) (*Nuspec, error) {
	var n Nuspec
	if err := xml.NewDecoder(r).Decode(&n); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidNuspec, err)
	}

	n.Metadata.ID = strings.TrimSpace(n.Metadata.ID)
	n.Metadata.Version = strings.TrimSpace(n.Metadata.Version)
	if n.Metadata.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidNuspec)
	}
	if _, err := version.Parse(n.Metadata.Version); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidNuspec, n.Metadata.ID, err)
	}
	return &n, nil
}

// Version returns the parsed manifest version.
func (n *Nuspec) Version() *version.NuGetVersion {
	v, _ := version.Parse(n.Metadata.Version)
	return v
}

// DependencyGroups returns the declared groups. A flat legacy list becomes a
// single untargeted group; grouped and flat lists never mix.
func (n *Nuspec) DependencyGroups() []DependencyGroup {
	deps := n.Metadata.Dependencies
	switch {
	case deps == nil:
		return nil
	case len(deps.Groups) > 0:
		return deps.Groups
	case len(deps.Dependencies) > 0:
		return []DependencyGroup{{Dependencies: deps.Dependencies}}
	}
	return nil
}
