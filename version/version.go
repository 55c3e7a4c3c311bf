// Package version implements NuGet package versions and version ranges.
//
// Versions follow NuGet's SemVer 2.0 dialect, which also accepts legacy
// four-part versions (Major.Minor.Build.Revision):
//
//	v := version.MustParse("1.2.3-beta.1")
//	r := version.MustParseRange("[1.0, 2.0)")
//	r.Satisfies(v) // true
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// NuGetVersion is a parsed NuGet version. Values are treated as immutable.
type NuGetVersion struct {
	Major    int
	Minor    int
	Patch    int
	Revision int

	// ReleaseLabels holds the dot separated prerelease labels ("beta", "1").
	ReleaseLabels []string

	// Metadata is the build metadata after '+'. It never takes part in comparison.
	Metadata string

	original string
}

// Parse parses a version string such as "1.0", "1.0.0-rc.1+sha.abc" or "1.0.0.4".
func Parse(s string) (*NuGetVersion, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version string cannot be empty")
	}

	v := &NuGetVersion{original: s}
	rest := s

	if i := strings.IndexByte(rest, '+'); i >= 0 {
		v.Metadata = rest[i+1:]
		rest = rest[:i]
		if v.Metadata == "" {
			return nil, fmt.Errorf("invalid version %q: empty metadata", s)
		}
		for _, part := range strings.Split(v.Metadata, ".") {
			if part == "" || !isLabelText(part) {
				return nil, fmt.Errorf("invalid version %q: bad metadata %q", s, v.Metadata)
			}
		}
	}

	if i := strings.IndexByte(rest, '-'); i >= 0 {
		labels := rest[i+1:]
		rest = rest[:i]
		if labels == "" {
			return nil, fmt.Errorf("invalid version %q: empty release label", s)
		}
		v.ReleaseLabels = strings.Split(labels, ".")
		for _, label := range v.ReleaseLabels {
			if err := validateLabel(label); err != nil {
				return nil, fmt.Errorf("invalid version %q: %w", s, err)
			}
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) > 4 {
		return nil, fmt.Errorf("invalid version %q: too many parts", s)
	}

	numbers := [4]int{}
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 || part == "" || strings.ContainsAny(part, "+-") {
			return nil, fmt.Errorf("invalid version %q: bad numeric part %q", s, part)
		}
		numbers[i] = n
	}
	v.Major, v.Minor, v.Patch, v.Revision = numbers[0], numbers[1], numbers[2], numbers[3]

	return v, nil
}

// validateLabel accepts [0-9A-Za-z-]+ with no leading zero on numeric labels,
// so equal versions always normalize to the same string.
func validateLabel(label string) error {
	switch {
	case label == "":
		return fmt.Errorf("empty release label")
	case !isLabelText(label):
		return fmt.Errorf("release label %q has invalid characters", label)
	case len(label) > 1 && label[0] == '0' && isDigits(label):
		return fmt.Errorf("numeric release label %q has a leading zero", label)
	}
	return nil
}

func isLabelText(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '-') {
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// MustParse is like Parse but panics on invalid input.
func MustParse(s string) *NuGetVersion {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// IsPrerelease reports whether the version carries release labels.
func (v *NuGetVersion) IsPrerelease() bool {
	return len(v.ReleaseLabels) > 0
}

// IsLegacyVersion reports whether the version needs its fourth part.
func (v *NuGetVersion) IsLegacyVersion() bool {
	return v.Revision > 0
}

// ToNormalizedString returns the canonical form: at least three numeric parts,
// the revision only when non-zero, release labels kept and metadata dropped.
func (v *NuGetVersion) ToNormalizedString() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.Major))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Minor))
	b.WriteByte('.')
	b.WriteString(strconv.Itoa(v.Patch))
	if v.IsLegacyVersion() {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.Revision))
	}
	if v.IsPrerelease() {
		b.WriteByte('-')
		b.WriteString(strings.Join(v.ReleaseLabels, "."))
	}
	return b.String()
}

// String returns the version as it was written, or the normalized form for
// versions that were built in code.
func (v *NuGetVersion) String() string {
	if v == nil {
		return ""
	}
	if v.original != "" {
		return v.original
	}
	s := v.ToNormalizedString()
	if v.Metadata != "" {
		s += "+" + v.Metadata
	}
	return s
}
