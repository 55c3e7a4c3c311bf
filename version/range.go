package version

import (
	"fmt"
	"strings"
)

// Range is a NuGet version range. A nil bound is open.
//
//	1.0          x >= 1.0
//	[1.0]        x == 1.0
//	[1.0, 2.0)   1.0 <= x < 2.0
//	(, 2.0]      x <= 2.0
//	(1.0, )      x > 1.0
type Range struct {
	MinVersion   *NuGetVersion
	MaxVersion   *NuGetVersion
	MinInclusive bool
	MaxInclusive bool
}

// AllVersions returns a range with no bounds.
func AllVersions() *Range {
	return &Range{MinInclusive: true, MaxInclusive: true}
}

// NewExactRange returns [v].
func NewExactRange(v *NuGetVersion) *Range {
	return &Range{MinVersion: v, MaxVersion: v, MinInclusive: true, MaxInclusive: true}
}

// NewMinRange returns the implicit-minimum range "v", i.e. x >= v.
func NewMinRange(v *NuGetVersion) *Range {
	return &Range{MinVersion: v, MinInclusive: true}
}

// ParseRange parses NuGet range syntax.
func ParseRange(s string) (*Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("version range cannot be empty")
	}

	if s[0] != '[' && s[0] != '(' {
		v, err := Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid version range %q: %w", s, err)
		}
		return NewMinRange(v), nil
	}

	last := s[len(s)-1]
	if last != ']' && last != ')' {
		return nil, fmt.Errorf("invalid version range %q: missing closing bracket", s)
	}

	r := &Range{
		MinInclusive: s[0] == '[',
		MaxInclusive: last == ']',
	}
	body := s[1 : len(s)-1]
	parts := strings.Split(body, ",")

	switch len(parts) {
	case 1:
		// [1.0] is the only legal single-part bracket form.
		if !r.MinInclusive || !r.MaxInclusive {
			return nil, fmt.Errorf("invalid version range %q: exact ranges use [x]", s)
		}
		v, err := Parse(parts[0])
		if err != nil {
			return nil, fmt.Errorf("invalid version range %q: %w", s, err)
		}
		r.MinVersion, r.MaxVersion = v, v
		return r, nil
	case 2:
	default:
		return nil, fmt.Errorf("invalid version range %q: too many commas", s)
	}

	if lower := strings.TrimSpace(parts[0]); lower != "" {
		v, err := Parse(lower)
		if err != nil {
			return nil, fmt.Errorf("invalid version range %q: min: %w", s, err)
		}
		r.MinVersion = v
	}
	if upper := strings.TrimSpace(parts[1]); upper != "" {
		v, err := Parse(upper)
		if err != nil {
			return nil, fmt.Errorf("invalid version range %q: max: %w", s, err)
		}
		r.MaxVersion = v
	}

	if r.MinVersion != nil && r.MaxVersion != nil {
		c := r.MinVersion.Compare(r.MaxVersion)
		if c > 0 || (c == 0 && !(r.MinInclusive && r.MaxInclusive)) {
			return nil, fmt.Errorf("invalid version range %q: empty interval", s)
		}
	}

	return r, nil
}

// MustParseRange is like ParseRange but panics on invalid input.
func MustParseRange(s string) *Range {
	r, err := ParseRange(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Satisfies reports whether v lies inside the range.
func (r *Range) Satisfies(v *NuGetVersion) bool {
	if v == nil {
		return false
	}
	if r == nil {
		return true
	}

	if r.MinVersion != nil {
		c := v.Compare(r.MinVersion)
		if c < 0 || (c == 0 && !r.MinInclusive) {
			return false
		}
	}
	if r.MaxVersion != nil {
		c := v.Compare(r.MaxVersion)
		if c > 0 || (c == 0 && !r.MaxInclusive) {
			return false
		}
	}
	return true
}

// HasLowerBound reports whether the range has a minimum.
func (r *Range) HasLowerBound() bool { return r != nil && r.MinVersion != nil }

// HasUpperBound reports whether the range has a maximum.
func (r *Range) HasUpperBound() bool { return r != nil && r.MaxVersion != nil }

// IsFloating reports whether either side of the range is unbound.
func (r *Range) IsFloating() bool {
	return !r.HasLowerBound() || !r.HasUpperBound()
}

// IsExact reports whether the range admits a single version.
func (r *Range) IsExact() bool {
	return r.HasLowerBound() && r.HasUpperBound() &&
		r.MinInclusive && r.MaxInclusive &&
		r.MinVersion.Equal(r.MaxVersion)
}

// FindBestMatch returns the lowest satisfying version, which is what NuGet
// picks for a dependency by default. It returns nil when nothing matches.
func (r *Range) FindBestMatch(versions []*NuGetVersion) *NuGetVersion {
	var best *NuGetVersion
	for _, v := range versions {
		if r.Satisfies(v) && (best == nil || v.LessThan(best)) {
			best = v
		}
	}
	return best
}

// String renders the normalized range, e.g. "[1.0.0, 2.0.0)" or "[1.0.0]".
// The implicit-minimum form is rendered as "[1.0.0, )".
func (r *Range) String() string {
	if r == nil {
		return "(, )"
	}
	if r.IsExact() {
		return "[" + r.MinVersion.ToNormalizedString() + "]"
	}

	var b strings.Builder
	if r.MinInclusive && r.HasLowerBound() {
		b.WriteByte('[')
	} else {
		b.WriteByte('(')
	}
	if r.HasLowerBound() {
		b.WriteString(r.MinVersion.ToNormalizedString())
	}
	b.WriteString(", ")
	if r.HasUpperBound() {
		b.WriteString(r.MaxVersion.ToNormalizedString())
	}
	if r.MaxInclusive && r.HasUpperBound() {
		b.WriteByte(']')
	} else {
		b.WriteByte(')')
	}
	return b.String()
}
