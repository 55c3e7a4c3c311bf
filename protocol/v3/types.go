// Package v3 reads the parts of the NuGet v3 protocol dependency gathering
// needs: the service index and the registration (package metadata) resource.
package v3

import (
	"time"
)

// ServiceIndex is a feed's index.json.
// See: https://learn.microsoft.com/nuget/api/service-index
type ServiceIndex struct {
	Version   string     `json:"version"`
	Resources []Resource `json:"resources"`
}

// Resource is one entry of the service index.
type Resource struct {
	ID      string `json:"@id"`
	Type    string `json:"@type"`
	Comment string `json:"comment,omitempty"`
}

// Registration resource types in preference order: SemVer 2.0.0 aware and
// gzipped first, then the original endpoint.
var RegistrationResourceTypes = []string{
	"RegistrationsBaseUrl/3.6.0",
	"RegistrationsBaseUrl/3.4.0",
	"RegistrationsBaseUrl",
}

// ServiceIndexCacheTTL is how long a fetched service index is reused.
const ServiceIndexCacheTTL = 40 * time.Minute

// RegistrationIndex is {base}/{id}/index.json.
type RegistrationIndex struct {
	Count int                `json:"count"`
	Items []RegistrationPage `json:"items"`
}

// RegistrationPage holds a version range of leaves. Large packages omit
// Items and the page must be fetched from ID.
type RegistrationPage struct {
	ID    string             `json:"@id"`
	Count int                `json:"count"`
	Items []RegistrationLeaf `json:"items,omitempty"`
	Lower string             `json:"lower"`
	Upper string             `json:"upper"`
}

// RegistrationLeaf is one package version.
type RegistrationLeaf struct {
	ID             string               `json:"@id"`
	CatalogEntry   *RegistrationCatalog `json:"catalogEntry"`
	PackageContent string               `json:"packageContent"`
}

// RegistrationCatalog is the metadata of one package version.
type RegistrationCatalog struct {
	ID               string            `json:"@id"`
	PackageID        string            `json:"id"`
	Version          string            `json:"version"`
	Listed           *bool             `json:"listed,omitempty"`
	Published        string            `json:"published,omitempty"`
	PackageHash      string            `json:"packageHash,omitempty"`
	DependencyGroups []DependencyGroup `json:"dependencyGroups,omitempty"`
}

// IsListed reports the listed flag; entries without one are listed.
func (c *RegistrationCatalog) IsListed() bool {
	return c.Listed == nil || *c.Listed
}

// DependencyGroup lists dependencies for one target framework. An empty
// TargetFramework applies to all frameworks.
type DependencyGroup struct {
	TargetFramework string       `json:"targetFramework,omitempty"`
	Dependencies    []Dependency `json:"dependencies,omitempty"`
}

// Dependency is one dependency with its NuGet range string.
type Dependency struct {
	ID    string `json:"id"`
	Range string `json:"range,omitempty"`
}
