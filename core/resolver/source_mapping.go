package resolver

import (
	"strings"
)

// PackageSourceMapping restricts which sources may serve a package id.
// Patterns are exact ids or prefixes ending in "*", compared without regard
// to case. The most specific matching pattern decides: an exact id beats any
// prefix, and a longer prefix beats a shorter one.
type PackageSourceMapping struct {
	sources []sourcePatterns
}

type sourcePatterns struct {
	name     string
	patterns []string
}

// NewPackageSourceMapping builds a mapping. sources lists source names in
// configuration order; patterns maps each name to its patterns.
func NewPackageSourceMapping(sources []string, patterns map[string][]string) *PackageSourceMapping {
	m := &PackageSourceMapping{}
	for _, name := range sources {
		sp := sourcePatterns{name: name}
		for _, p := range patterns[name] {
			if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
				sp.patterns = append(sp.patterns, p)
			}
		}
		if len(sp.patterns) > 0 {
			m.sources = append(m.sources, sp)
		}
	}
	return m
}

// IsEnabled reports whether any pattern is configured.
func (m *PackageSourceMapping) IsEnabled() bool {
	return m != nil && len(m.sources) > 0
}

// GetConfiguredPackageSources returns the names of the sources allowed to
// serve id, in configuration order. An id matching no pattern gets none.
func (m *PackageSourceMapping) GetConfiguredPackageSources(id string) []string {
	if !m.IsEnabled() {
		return nil
	}

	id = strings.ToLower(id)
	best := -1
	var names []string
	for _, sp := range m.sources {
		score := -1
		for _, p := range sp.patterns {
			score = max(score, patternScore(p, id))
		}
		switch {
		case score < 0 || score < best:
		case score > best:
			best = score
			names = []string{sp.name}
		default:
			names = append(names, sp.name)
		}
	}
	return names
}

// patternScore rates how specifically pattern matches id, or returns -1.
func patternScore(pattern, id string) int {
	if prefix, ok := strings.CutSuffix(pattern, "*"); ok {
		if strings.HasPrefix(id, prefix) {
			return 2 * len(prefix)
		}
		return -1
	}
	if pattern == id {
		return 2*len(pattern) + 1
	}
	return -1
}
