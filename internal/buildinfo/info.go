// Package buildinfo carries the version stamped into the shamba binary.
package buildinfo

import "fmt"

// Set via -ldflags "-X github.com/shamba-dev/shamba/internal/buildinfo.Version=..." at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String renders the version line shown by --version.
func String() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date)
}
