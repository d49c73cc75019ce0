// Package version carries build metadata, set via ldflags:
//
//	-X github.com/Cybonto/violentutf-routesync/internal/version.Version=v1.2.3
package version

import "fmt"

var (
	Version = "v0.0.0-dev"
	Commit  = "unknown"
)

func String() string {
	return fmt.Sprintf("routesync %s (%s)", Version, Commit)
}
