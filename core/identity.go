// Package core holds the package model shared by the gatherer and the
// uninstall resolver, and the sources they read dependency information from.
package core

import (
	"fmt"
	"strings"

	"github.com/willibrandon/gonuget-pm/version"
)

// PackageIdentity is a package id and version. The id is compared without
// regard to case. A nil Version means "any version of this id".
type PackageIdentity struct {
	ID      string
	Version *version.NuGetVersion
}

// NewPackageIdentity parses versionString and returns the identity.
// An empty versionString yields an identity without a version.
func NewPackageIdentity(id, versionString string) (PackageIdentity, error) {
	if strings.TrimSpace(id) == "" {
		return PackageIdentity{}, fmt.Errorf("package id cannot be empty")
	}
	if versionString == "" {
		return PackageIdentity{ID: id}, nil
	}

	v, err := version.Parse(versionString)
	if err != nil {
		return PackageIdentity{}, fmt.Errorf("package %s: %w", id, err)
	}
	return PackageIdentity{ID: id, Version: v}, nil
}

// MustPackageIdentity is like NewPackageIdentity but panics on error.
func MustPackageIdentity(id, versionString string) PackageIdentity {
	p, err := NewPackageIdentity(id, versionString)
	if err != nil {
		panic(err)
	}
	return p
}

// HasVersion reports whether the identity pins a version.
func (p PackageIdentity) HasVersion() bool {
	return p.Version != nil
}

// Equal compares ids case-insensitively and versions by NuGet ordering.
func (p PackageIdentity) Equal(other PackageIdentity) bool {
	return strings.EqualFold(p.ID, other.ID) && p.Version.Compare(other.Version) == 0
}

// Compare orders by id, ignoring case, then by version.
func (p PackageIdentity) Compare(other PackageIdentity) int {
	if c := strings.Compare(strings.ToLower(p.ID), strings.ToLower(other.ID)); c != 0 {
		return c
	}
	return p.Version.Compare(other.Version)
}

// Key is a stable map key: the lowercase id and the normalized version.
// Two identities have the same key exactly when they are Equal.
func (p PackageIdentity) Key() string {
	if p.Version == nil {
		return strings.ToLower(p.ID)
	}
	return strings.ToLower(p.ID) + "|" + strings.ToLower(p.Version.ToNormalizedString())
}

// String renders "Id.Version", e.g. "jQuery.1.4.4". Identities without a
// version render as the bare id.
func (p PackageIdentity) String() string {
	if p.Version == nil {
		return p.ID
	}
	return p.ID + "." + p.Version.ToNormalizedString()
}

// IdentitySet is an insertion-ordered set of identities keyed by Key.
// The zero value is ready to use.
type IdentitySet struct {
	index map[string]int
	items []PackageIdentity
}

// NewIdentitySet returns a set holding ids in order, duplicates dropped.
func NewIdentitySet(ids ...PackageIdentity) *IdentitySet {
	s := &IdentitySet{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was not already present.
func (s *IdentitySet) Add(id PackageIdentity) bool {
	if s.index == nil {
		s.index = make(map[string]int)
	}
	key := id.Key()
	if _, ok := s.index[key]; ok {
		return false
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, id)
	return true
}

// Contains reports whether an identity equal to id is in the set.
func (s *IdentitySet) Contains(id PackageIdentity) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[id.Key()]
	return ok
}

// Len returns the number of identities.
func (s *IdentitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns the identities in insertion order. The slice is a copy.
func (s *IdentitySet) Items() []PackageIdentity {
	if s == nil {
		return nil
	}
	out := make([]PackageIdentity, len(s.items))
	copy(out, s.items)
	return out
}
