// Package frameworks parses target framework monikers and answers the one
// question dependency gathering needs: which dependency group of a package
// applies to the project's framework.
//
//	fw := frameworks.MustParse("net8.0")
//	fw.Framework // ".NETCoreApp"
package frameworks

import (
	"fmt"
	"strconv"
	"strings"
)

// Framework identifiers.
const (
	NetFramework = ".NETFramework"
	NetStandard  = ".NETStandard"
	NetCoreApp   = ".NETCoreApp"
	Any          = "Any"
	Unsupported  = "Unsupported"
)

// NuGetFramework is a parsed target framework such as net48 or net8.0-windows.
type NuGetFramework struct {
	Framework string
	Version   FrameworkVersion
	Platform  string
}

// FrameworkVersion is the numeric framework version.
type FrameworkVersion struct {
	Major int
	Minor int
	Build int
}

// Compare orders framework versions.
func (v FrameworkVersion) Compare(other FrameworkVersion) int {
	for _, pair := range [3][2]int{{v.Major, other.Major}, {v.Minor, other.Minor}, {v.Build, other.Build}} {
		if pair[0] != pair[1] {
			if pair[0] < pair[1] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// AnyFramework matches every dependency group.
var AnyFramework = &NuGetFramework{Framework: Any}

var shortNames = []struct {
	prefix    string
	framework string
}{
	// longest first so "netstandard" never matches "net"
	{"netstandard", NetStandard},
	{"netcoreapp", NetCoreApp},
	{"net", ""},
}

var longNames = map[string]string{
	strings.ToLower(NetFramework): NetFramework,
	strings.ToLower(NetStandard):  NetStandard,
	strings.ToLower(NetCoreApp):   NetCoreApp,
}

// Parse accepts short folder names (net472, net8.0, netstandard2.0,
// netcoreapp3.1, net8.0-windows), full names (.NETFramework,Version=v4.5), the
// registration API form (.NETStandard2.0) and "any".
func Parse(s string) (*NuGetFramework, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("framework string cannot be empty")
	}

	lower := strings.ToLower(s)
	switch lower {
	case "any", "agnostic":
		return &NuGetFramework{Framework: Any}, nil
	case "unsupported":
		return &NuGetFramework{Framework: Unsupported}, nil
	}

	if strings.HasPrefix(lower, ".") {
		return parseLongName(s)
	}

	fw := &NuGetFramework{}
	if name, platform, ok := strings.Cut(lower, "-"); ok {
		lower = name
		fw.Platform = platform
	}

	for _, short := range shortNames {
		rest, ok := strings.CutPrefix(lower, short.prefix)
		if !ok {
			continue
		}
		if rest == "" {
			return nil, fmt.Errorf("framework %q is missing a version", s)
		}

		v, err := parseShortVersion(rest, short.prefix == "net")
		if err != nil {
			return nil, fmt.Errorf("framework %q: %w", s, err)
		}
		fw.Version = v
		fw.Framework = short.framework
		if fw.Framework == "" {
			// net5.0 and later are .NETCoreApp; net48 and earlier are .NETFramework.
			fw.Framework = NetFramework
			if v.Major >= 5 {
				fw.Framework = NetCoreApp
			}
		}
		return fw, nil
	}

	return nil, fmt.Errorf("unknown framework %q", s)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) *NuGetFramework {
	fw, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return fw
}

func parseLongName(s string) (*NuGetFramework, error) {
	name, versionPart := s, ""
	if before, after, ok := strings.Cut(s, ","); ok {
		name = before
		versionPart = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(after), "Version="), "v")
	} else {
		// ".NETStandard2.0" as served by registration endpoints
		i := strings.IndexAny(s, "0123456789")
		if i > 0 {
			name, versionPart = s[:i], s[i:]
		}
	}

	framework, ok := longNames[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown framework %q", s)
	}

	fw := &NuGetFramework{Framework: framework}
	if versionPart != "" {
		v, err := parseDottedVersion(versionPart)
		if err != nil {
			return nil, fmt.Errorf("framework %q: %w", s, err)
		}
		fw.Version = v
	}
	return fw, nil
}

func parseShortVersion(s string, compact bool) (FrameworkVersion, error) {
	if compact && !strings.Contains(s, ".") {
		// net48 = 4.8, net472 = 4.7.2
		if len(s) < 2 || len(s) > 3 {
			return FrameworkVersion{}, fmt.Errorf("invalid compact version %q", s)
		}
		var parts [3]int
		for i, r := range s {
			if r < '0' || r > '9' {
				return FrameworkVersion{}, fmt.Errorf("invalid compact version %q", s)
			}
			parts[i] = int(r - '0')
		}
		return FrameworkVersion{Major: parts[0], Minor: parts[1], Build: parts[2]}, nil
	}
	return parseDottedVersion(s)
}

func parseDottedVersion(s string) (FrameworkVersion, error) {
	parts := strings.Split(s, ".")
	if len(parts) > 4 {
		return FrameworkVersion{}, fmt.Errorf("invalid version %q", s)
	}

	var nums [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil || n < 0 {
			return FrameworkVersion{}, fmt.Errorf("invalid version %q", s)
		}
		if i < 3 {
			nums[i] = n
		}
	}
	return FrameworkVersion{Major: nums[0], Minor: nums[1], Build: nums[2]}, nil
}

// IsAny reports whether the framework is the wildcard framework.
func (fw *NuGetFramework) IsAny() bool {
	return fw == nil || fw.Framework == Any
}

// Equal compares identifier, version and platform.
func (fw *NuGetFramework) Equal(other *NuGetFramework) bool {
	if fw == nil || other == nil {
		return fw == other
	}
	return fw.Framework == other.Framework &&
		fw.Version.Compare(other.Version) == 0 &&
		strings.EqualFold(fw.Platform, other.Platform)
}

// ShortFolderName renders the moniker used in package folders and cache keys.
func (fw *NuGetFramework) ShortFolderName() string {
	if fw == nil {
		return "any"
	}

	var s string
	switch fw.Framework {
	case Any:
		return "any"
	case Unsupported:
		return "unsupported"
	case NetFramework:
		s = "net" + strconv.Itoa(fw.Version.Major) + strconv.Itoa(fw.Version.Minor)
		if fw.Version.Build > 0 {
			s += strconv.Itoa(fw.Version.Build)
		}
	case NetStandard:
		s = fmt.Sprintf("netstandard%d.%d", fw.Version.Major, fw.Version.Minor)
	case NetCoreApp:
		if fw.Version.Major >= 5 {
			s = fmt.Sprintf("net%d.%d", fw.Version.Major, fw.Version.Minor)
		} else {
			s = fmt.Sprintf("netcoreapp%d.%d", fw.Version.Major, fw.Version.Minor)
		}
	default:
		s = strings.ToLower(fw.Framework)
	}

	if fw.Platform != "" {
		s += "-" + fw.Platform
	}
	return s
}

// String returns the short folder name.
func (fw *NuGetFramework) String() string {
	return fw.ShortFolderName()
}
