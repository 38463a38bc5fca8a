package version

import "fmt"

// These are overwritten by `make build`, which passes
// -X github.com/gridspace/grid-pages/internal/version.Version=... (and Commit, BuildTime) to the linker.
var (
	// Version is the semantic version of the build.
	Version = "0.1.0-dev"
	// Commit is the short git SHA of the build, "none" for local builds.
	Commit = "none"
	// BuildTime is the UTC build timestamp.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
func Short() string {
	return Version
}

// Full returns the version with commit and build time.
func Full() string {
	return fmt.Sprintf("grid-pages %s (commit %s, built %s)", Version, Commit, BuildTime)
}
