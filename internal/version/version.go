// Package version provides application version information.
// The version can be set at build time using ldflags:
//
//	go build -ldflags "-X github.com/ramonehamilton/cardfinder/internal/version.Version=v1.2.3"
package version

import (
	"fmt"
	"runtime/debug"
)

// Version is the application version. It defaults to "dev" and can be
// overridden at build time using ldflags.
var Version = "dev"

// GetVersion returns the current application version.
func GetVersion() string {
	return Version
}

// String returns the version with the VCS revision appended when the binary
// was built from a checkout, e.g. "v1.2.3 (a1b2c3d)".
func String() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return Version
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && len(s.Value) >= 7 {
			return fmt.Sprintf("%s (%s)", Version, s.Value[:7])
		}
	}
	return Version
}
