// Package buildinfo provides build-time version information.
//
// Variables are set via ldflags during build:
//
//	go build -ldflags "-X github.com/matzehuels/phrasetower/pkg/buildinfo.Version=v1.0.0 \
//	    -X github.com/matzehuels/phrasetower/pkg/buildinfo.Commit=$(git rev-parse HEAD) \
//	    -X github.com/matzehuels/phrasetower/pkg/buildinfo.Date=$(date -u +%Y-%m-%dT%H:%M:%SZ)" \
//	    ./cmd/phrasetower
//
// When the variables are not set, [Read] falls back to the module version
// and VCS settings recorded by the Go toolchain.
package buildinfo

import (
	"fmt"
	"runtime/debug"
	"sync"
)

var (
	// Version is the semantic version (e.g., "v1.2.3").
	Version = "dev"

	// Commit is the git commit SHA.
	Commit = "none"

	// Date is the build timestamp.
	Date = "unknown"
)

// Info is a resolved view of the build variables.
type Info struct {
	Version  string
	Commit   string
	Date     string
	Modified bool
}

var (
	readOnce sync.Once
	info     Info
)

// Read returns the build information, filling unset ldflags variables from
// the binary's embedded build info.
func Read() Info {
	readOnce.Do(func() {
		info = Info{Version: Version, Commit: Commit, Date: Date}
		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		info = fromBuildInfo(info, bi)
	})
	return info
}

func fromBuildInfo(in Info, bi *debug.BuildInfo) Info {
	if in.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		in.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if in.Commit == "none" {
				in.Commit = s.Value
			}
		case "vcs.time":
			if in.Date == "unknown" {
				in.Date = s.Value
			}
		case "vcs.modified":
			in.Modified = s.Value == "true"
		}
	}
	return in
}

// String returns the formatted build information.
func String() string {
	i := Read()
	return fmt.Sprintf("version: %s\ncommit: %s\nbuilt: %s", i.Version, shortCommit(i), i.Date)
}

// Template returns the version template string for cobra.
func Template() string {
	i := Read()
	return fmt.Sprintf("{{.Name}} version %s\ncommit: %s\nbuilt: %s\n", i.Version, shortCommit(i), i.Date)
}

func shortCommit(i Info) string {
	c := i.Commit
	if len(c) > 12 {
		c = c[:12]
	}
	if i.Modified {
		c += "-dirty"
	}
	return c
}
