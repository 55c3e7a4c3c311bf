package frameworks

import "strings"

// Minimum .NET Framework version implementing each .NET Standard version.
// .NET Standard 2.1 has no .NET Framework implementation.
var netStandardOnFramework = map[FrameworkVersion]FrameworkVersion{
	{1, 0, 0}: {4, 5, 0},
	{1, 1, 0}: {4, 5, 0},
	{1, 2, 0}: {4, 5, 1},
	{1, 3, 0}: {4, 6, 0},
	{1, 4, 0}: {4, 6, 1},
	{1, 5, 0}: {4, 6, 1},
	{1, 6, 0}: {4, 6, 1},
	{2, 0, 0}: {4, 6, 1},
}

// Minimum .NETCoreApp version implementing each .NET Standard version.
var netStandardOnCoreApp = map[FrameworkVersion]FrameworkVersion{
	{1, 0, 0}: {1, 0, 0},
	{1, 1, 0}: {1, 0, 0},
	{1, 2, 0}: {1, 0, 0},
	{1, 3, 0}: {1, 0, 0},
	{1, 4, 0}: {1, 0, 0},
	{1, 5, 0}: {1, 0, 0},
	{1, 6, 0}: {1, 0, 0},
	{2, 0, 0}: {2, 0, 0},
	{2, 1, 0}: {3, 0, 0},
}

// IsCompatible reports whether a project targeting project can consume assets
// or dependencies declared for candidate.
func IsCompatible(project, candidate *NuGetFramework) bool {
	if candidate.IsAny() || project.IsAny() {
		return true
	}
	if candidate.Framework == Unsupported || project.Framework == Unsupported {
		return false
	}
	if candidate.Platform != "" && !strings.EqualFold(candidate.Platform, project.Platform) {
		return false
	}

	if candidate.Framework == project.Framework {
		return candidate.Version.Compare(project.Version) <= 0
	}

	if candidate.Framework != NetStandard {
		return false
	}

	table := netStandardOnCoreApp
	if project.Framework == NetFramework {
		table = netStandardOnFramework
	} else if project.Framework != NetCoreApp {
		return false
	}

	minimum, ok := table[FrameworkVersion{Major: candidate.Version.Major, Minor: candidate.Version.Minor}]
	return ok && project.Version.Compare(minimum) >= 0
}

// GetNearest picks the candidate a project should use, following NuGet's
// reducer preferences: an exact match, then the highest compatible version of
// the project's own framework (platform-specific before platform-neutral),
// then the highest compatible .NET Standard, then Any. It returns nil when no
// candidate is compatible.
func GetNearest(project *NuGetFramework, candidates []*NuGetFramework) *NuGetFramework {
	var best *NuGetFramework
	bestRank := -1

	for _, c := range candidates {
		if c == nil || !IsCompatible(project, c) {
			continue
		}

		rank := nearestRank(project, c)
		if best == nil || rank > bestRank ||
			(rank == bestRank && c.Version.Compare(best.Version) > 0) {
			best, bestRank = c, rank
		}
	}
	return best
}

func nearestRank(project, c *NuGetFramework) int {
	switch {
	case c.Equal(project):
		return 5
	case !project.IsAny() && c.Framework == project.Framework && c.Platform != "":
		return 4
	case !project.IsAny() && c.Framework == project.Framework:
		return 3
	case c.Framework == NetStandard:
		return 2
	case c.IsAny():
		return 0
	}
	return 1
}
