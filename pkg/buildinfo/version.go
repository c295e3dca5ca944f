// Package buildinfo carries the version stamped into release binaries.
//
// Release builds set the variables via ldflags:
//
//	go build -ldflags "-X github.com/reqlint/reqlint/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/reqlint/reqlint/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/reqlint/reqlint/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// Plain "go build" and "go install" binaries fall back to the VCS metadata
// the toolchain embeds, so a dev build still reports its commit.
package buildinfo

import (
	"fmt"
	"runtime/debug"
)

var (
	// Version is the semantic version, "dev" when not stamped.
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

func init() {
	if Commit != "none" {
		return
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			Commit = s.Value
		case "vcs.time":
			Date = s.Value
		}
	}
}

// String returns the multi-line form used by "reqlint version" style output.
func String() string {
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", Version, Commit, Date)
}

// Template returns the cobra version template.
func Template() string {
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", Version, Commit, Date)
}
