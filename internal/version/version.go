// Package version reports which botpanel binary is running.
package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags "-X".
var (
	Version = "dev"
	Commit  = ""
)

// SetCommit overrides the commit hash, for builds that cannot use ldflags.
func SetCommit(hash string) {
	Commit = hash
}

// ShortCommit returns the first 12 characters of a commit hash.
func ShortCommit(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}

// ResolveCommit returns Commit, falling back to the vcs.revision recorded by
// the Go toolchain.
func ResolveCommit() string {
	if Commit != "" {
		return Commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" {
			return s.Value
		}
	}
	return ""
}

// String is the version line printed by "botpanel version".
func String() string {
	if c := ShortCommit(ResolveCommit()); c != "" {
		return fmt.Sprintf("%s (%s)", Version, c)
	}
	return Version
}
