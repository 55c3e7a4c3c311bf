package cli

import "github.com/willibrandon/gonuget-pm/cmd/gonuget/version"

// GetVersion returns the bare version string.
func GetVersion() string {
	return version.Version
}

// GetFullVersion returns detailed version information
func GetFullVersion() string {
	return "gonuget version " + version.Version + "\n" +
		"commit: " + version.Commit + "\n" +
		"built: " + version.Date + "\n" +
		"go: " + version.GoVersion
}
