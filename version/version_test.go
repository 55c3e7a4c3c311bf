package version

import (
	"strings"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input      string
		major      int
		minor      int
		patch      int
		revision   int
		labels     int
		metadata   string
		normalized string
	}{
		{"1", 1, 0, 0, 0, 0, "", "1.0.0"},
		{"1.0", 1, 0, 0, 0, 0, "", "1.0.0"},
		{"1.2.3", 1, 2, 3, 0, 0, "", "1.2.3"},
		{"1.2.3-beta.1", 1, 2, 3, 0, 2, "", "1.2.3-beta.1"},
		{"1.0.0+sha.5114f85", 1, 0, 0, 0, 0, "sha.5114f85", "1.0.0"},
		{"1.0.0-rc.1+build.123", 1, 0, 0, 0, 2, "build.123", "1.0.0-rc.1"},
		{"2.5.3.1", 2, 5, 3, 1, 0, "", "2.5.3.1"},
		{"1.0.0.0", 1, 0, 0, 0, 0, "", "1.0.0"},
		{"01.002.3", 1, 2, 3, 0, 0, "", "1.2.3"},
		{"1.0.0-beta.0", 1, 0, 0, 0, 2, "", "1.0.0-beta.0"},
		{"1.0.0-rc-1.x-y", 1, 0, 0, 0, 2, "", "1.0.0-rc-1.x-y"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tt.input, err)
			}
			if v.Major != tt.major || v.Minor != tt.minor || v.Patch != tt.patch || v.Revision != tt.revision {
				t.Errorf("Parse(%q) = %d.%d.%d.%d", tt.input, v.Major, v.Minor, v.Patch, v.Revision)
			}
			if len(v.ReleaseLabels) != tt.labels {
				t.Errorf("ReleaseLabels = %v, want %d labels", v.ReleaseLabels, tt.labels)
			}
			if v.Metadata != tt.metadata {
				t.Errorf("Metadata = %q, want %q", v.Metadata, tt.metadata)
			}
			if got := v.ToNormalizedString(); got != tt.normalized {
				t.Errorf("ToNormalizedString() = %q, want %q", got, tt.normalized)
			}
			if got := v.String(); got != tt.input {
				t.Errorf("String() = %q, want original %q", got, tt.input)
			}
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"   ",
		"a.b.c",
		"1.0.0.0.0",
		"1..0",
		"1.0.0-",
		"1.0.0+",
		"1.0.0-beta..1",
		"-1.0.0",
		"1.+2.0",
		"1.0.0-beta.01",
		"1.0.0-00",
		"1.0.0-beta_1",
		"1.0.0-béta",
		"1.0.0+build..1",
		"1.0.0+sha!1",
	} {
		t.Run(input, func(t *testing.T) {
			if _, err := Parse(input); err == nil {
				t.Errorf("Parse(%q) expected error", input)
			}
		})
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("MustParse should panic on invalid input")
		}
	}()
	MustParse("not-a-version")
}

func TestString_BuiltInCode(t *testing.T) {
	v := &NuGetVersion{Major: 1, Minor: 2, Patch: 3, ReleaseLabels: []string{"beta"}, Metadata: "abc"}
	if got := v.String(); got != "1.2.3-beta+abc" {
		t.Errorf("String() = %q", got)
	}

	var nilVersion *NuGetVersion
	if got := nilVersion.String(); got != "" {
		t.Errorf("nil String() = %q", got)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want int
	}{
		{"equal", "1.0.0", "1.0.0", 0},
		{"two part equals three part", "1.0", "1.0.0", 0},
		{"zero revision equals three part", "1.0.0.0", "1.0.0", 0},
		{"revision counts", "1.0.0.1", "1.0.0", 1},
		{"major", "1.0.0", "2.0.0", -1},
		{"minor", "1.1.0", "1.0.0", 1},
		{"patch", "1.0.0", "1.0.1", -1},
		{"release above prerelease", "1.0.0", "1.0.0-beta", 1},
		{"labels alphabetical", "1.0.0-alpha", "1.0.0-beta", -1},
		{"labels ignore case", "1.0.0-BETA", "1.0.0-beta", 0},
		{"numeric label below text", "1.0.0-1", "1.0.0-alpha", -1},
		{"numeric labels numerically", "1.0.0-rc.2", "1.0.0-rc.10", -1},
		{"more labels sort higher", "1.0.0-alpha", "1.0.0-alpha.1", -1},
		{"metadata ignored", "1.0.0+a", "1.0.0+b", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MustParse(tt.a).Compare(MustParse(tt.b))
			if got != tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.a, tt.b, got, tt.want)
			}
			if back := MustParse(tt.b).Compare(MustParse(tt.a)); back != -tt.want {
				t.Errorf("Compare(%s, %s) = %d, want %d", tt.b, tt.a, back, -tt.want)
			}
		})
	}
}

func TestCompare_Nil(t *testing.T) {
	var none *NuGetVersion
	v := MustParse("1.0.0")

	if none.Compare(nil) != 0 {
		t.Error("nil should equal nil")
	}
	if none.Compare(v) != -1 || v.Compare(none) != 1 {
		t.Error("nil should sort below any version")
	}
}

func TestEqualLessGreater(t *testing.T) {
	a := MustParse("1.0.0-beta")
	b := MustParse("1.0.0")

	if !a.LessThan(b) || a.GreaterThan(b) || a.Equal(b) {
		t.Errorf("%s vs %s ordering wrong", a, b)
	}
	if !MustParse("1.0").Equal(b) {
		t.Error("1.0 should equal 1.0.0")
	}
	if !a.IsPrerelease() || b.IsPrerelease() {
		t.Error("IsPrerelease wrong")
	}
}

func TestEqualVersionsNormalizeAlike(t *testing.T) {
	pairs := [][2]string{
		{"1.0", "1.0.0.0"},
		{"1.0.0-BETA.1", "1.0.0-beta.1"},
		{"01.0.0-rc.10", "1.0.0-rc.10+build"},
	}
	for _, p := range pairs {
		a, b := MustParse(p[0]), MustParse(p[1])
		if !a.Equal(b) {
			t.Fatalf("%s should equal %s", p[0], p[1])
		}
		if strings.ToLower(a.ToNormalizedString()) != strings.ToLower(b.ToNormalizedString()) {
			t.Errorf("%s and %s normalize to %q and %q", p[0], p[1], a.ToNormalizedString(), b.ToNormalizedString())
		}
	}
}
