package version

import (
	"strconv"
	"strings"
)

// Compare orders two versions the way NuGet does: numeric parts first, then a
// release version sorts above any prerelease of the same numbers. Labels are
// compared one by one, numeric labels below alphanumeric ones, text labels
// without regard to case. Metadata is ignored.
//
// A nil version sorts below every non-nil version.
func (v *NuGetVersion) Compare(other *NuGetVersion) int {
	switch {
	case v == nil && other == nil:
		return 0
	case v == nil:
		return -1
	case other == nil:
		return 1
	}

	for _, pair := range [4][2]int{
		{v.Major, other.Major},
		{v.Minor, other.Minor},
		{v.Patch, other.Patch},
		{v.Revision, other.Revision},
	} {
		if c := compareInt(pair[0], pair[1]); c != 0 {
			return c
		}
	}

	return compareReleaseLabels(v.ReleaseLabels, other.ReleaseLabels)
}

// Equal reports whether both versions compare equal.
func (v *NuGetVersion) Equal(other *NuGetVersion) bool {
	return v.Compare(other) == 0
}

// LessThan reports whether v sorts before other.
func (v *NuGetVersion) LessThan(other *NuGetVersion) bool {
	return v.Compare(other) < 0
}

// GreaterThan reports whether v sorts after other.
func (v *NuGetVersion) GreaterThan(other *NuGetVersion) bool {
	return v.Compare(other) > 0
}

func compareReleaseLabels(a, b []string) int {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 0
	case len(a) == 0:
		return 1
	case len(b) == 0:
		return -1
	}

	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareLabel(a[i], b[i]); c != 0 {
			return c
		}
	}
	return compareInt(len(a), len(b))
}

func compareLabel(a, b string) int {
	aNumeric, bNumeric := isDigits(a), isDigits(b)

	switch {
	case aNumeric && bNumeric:
		an, _ := strconv.Atoi(a)
		bn, _ := strconv.Atoi(b)
		return compareInt(an, bn)
	case aNumeric:
		return -1
	case bNumeric:
		return 1
	}

	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
