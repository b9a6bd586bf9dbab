// Package version carries build identification stamped in via ldflags.
package version

import "fmt"

var (
	// Version is the release tag, or "dev" for untagged builds
	Version = "dev"
	// GitSHA is the git commit the binary was built from
	GitSHA = "unknown"
	// BuildTime is the build timestamp
	BuildTime = "unknown"
)

// String renders the build identification on one line.
func String() string {
	if GitSHA == "unknown" {
		return Version
	}
	return fmt.Sprintf("%s (%s, built %s)", Version, GitSHA, BuildTime)
}
