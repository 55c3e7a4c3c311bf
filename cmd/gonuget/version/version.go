// Package version holds build information injected with
// -ldflags "-X github.com/willibrandon/gonuget-pm/cmd/gonuget/version.Version=v0.1.0".
package version

import (
	"fmt"
	"runtime"
)

// Build-time variables injected via -ldflags -X
var (
	Version   = "dev"
	Commit    = "none"
	Date      = "unknown"
	GoVersion = runtime.Version()
)

// Info returns a one line summary, e.g.
// "gonuget version v0.1.0 (commit: a1b2c3d, built: 2026-01-04T12:00:00Z)".
func Info() string {
	return fmt.Sprintf("gonuget version %s (commit: %s, built: %s)", Version, Commit, Date)
}
