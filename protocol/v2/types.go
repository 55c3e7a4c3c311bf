// Package v2 reads NuGet v2 OData feeds: the service document for protocol
// detection and the package entries that carry dependency strings.
package v2

import (
	"encoding/xml"
)

// Service is the OData service document at the feed root.
type Service struct {
	XMLName   xml.Name  `xml:"service"`
	Workspace Workspace `xml:"workspace"`
	Base      string    `xml:"base,attr"`
}

// Workspace lists the feed's collections.
type Workspace struct {
	Title       string       `xml:"title"`
	Collections []Collection `xml:"collection"`
}

// Collection is one OData collection, normally "Packages".
type Collection struct {
	Href  string `xml:"href,attr"`
	Title string `xml:"title"`
}

// Feed is an Atom feed page.
type Feed struct {
	XMLName xml.Name `xml:"feed"`
	Entries []Entry  `xml:"entry"`
	Links   []Link   `xml:"link"`
}

// NextLink returns the href of the rel="next" link, or "".
func (f *Feed) NextLink() string {
	for _, l := range f.Links {
		if l.Rel == "next" {
			return l.Href
		}
	}
	return ""
}

// Link is an Atom link.
type Link struct {
	Rel  string `xml:"rel,attr"`
	Href string `xml:"href,attr"`
}

// Entry is one package version.
type Entry struct {
	XMLName    xml.Name   `xml:"entry"`
	ID         string     `xml:"id"`
	Title      string     `xml:"title"`
	Properties Properties `xml:"properties"`
	Content    Content    `xml:"content"`
}

// Properties carries the package metadata fields used for gathering.
type Properties struct {
	ID            string `xml:"Id"`
	Version       string `xml:"Version"`
	NormalizedVer string `xml:"NormalizedVersion"`
	Dependencies  string `xml:"Dependencies"`
	IsPrerelease  bool   `xml:"IsPrerelease"`
	Published     string `xml:"Published"`
	Listed        string `xml:"Listed"`
	PackageHash   string `xml:"PackageHash"`
}

// IsListed reports whether the entry is listed. Feeds without a Listed
// property mark unlisted packages with a 1900-01-01 publish date.
func (p *Properties) IsListed() bool {
	switch p.Listed {
	case "false", "False":
		return false
	case "true", "True":
		return true
	}
	return len(p.Published) < 4 || p.Published[:4] != "1900"
}

// PackageID returns the id, falling back to the entry title for feeds that
// omit the Id property.
func (e *Entry) PackageID() string {
	if e.Properties.ID != "" {
		return e.Properties.ID
	}
	return e.Title
}

// Content carries the package download URL.
type Content struct {
	Type string `xml:"type,attr"`
	Src  string `xml:"src,attr"`
}

// DependencyGroup is the parsed dependencies for one target framework.
type DependencyGroup struct {
	TargetFramework string
	Dependencies    []Dependency
}

// Dependency is an id and its NuGet range string; an empty range is any version.
type Dependency struct {
	ID    string
	Range string
}
