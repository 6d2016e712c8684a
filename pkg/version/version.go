// Package version holds build-time version info for dev, injected via
// -ldflags from the build.
package version

import "fmt"

var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// Version returns the build version string.
func Version() string { return version }

// Commit returns the build commit hash.
func Commit() string { return commit }

// BuildDate returns the build date string.
func BuildDate() string { return buildDate }

// String renders the full multi-line version report.
func String() string {
	return fmt.Sprintf("dev %s\nCommit: %s\nBuilt: %s", version, commit, buildDate)
}
