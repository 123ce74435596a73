// Package version reports the build and the wire protocol a binary speaks.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/muurk/daelim/internal/protocol"
)

// Set at link time:
//
//	go build -ldflags="-X github.com/muurk/daelim/internal/version.Version=v0.3.0 \
//	                   -X github.com/muurk/daelim/internal/version.Commit=1a2b3c4"
var (
	Version = ""
	Commit  = ""
)

// Info describes one build
type Info struct {
	Version string
	Commit  string
	Go      string
}

func init() {
	info := resolve(debug.ReadBuildInfo())
	Version, Commit = info.Version, info.Commit
}

// resolve fills whatever the linker left empty from the embedded build
// info. Module builds carry a real version; workspace builds only carry
// VCS settings.
func resolve(bi *debug.BuildInfo, ok bool) Info {
	info := Info{Version: Version, Commit: Commit}
	if ok {
		info.Go = bi.GoVersion
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		if info.Commit == "" {
			info.Commit = vcsCommit(bi.Settings)
		}
	}

	if info.Version == "" {
		info.Version = "devel"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	return info
}

func vcsCommit(settings []debug.BuildSetting) string {
	var rev string
	var dirty bool
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			rev = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if len(rev) > 7 {
		rev = rev[:7]
	}
	if rev != "" && dirty {
		rev += "-dirty"
	}
	return rev
}

// Full returns the version with its commit
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// Protocol summarises the wire protocol this build speaks: header size,
// default port and the guard profiles it can probe.
func Protocol() string {
	names := make([]string, len(protocol.GuardProfiles))
	for i, p := range protocol.GuardProfiles {
		names[i] = p.String()
	}
	return fmt.Sprintf("protocol: %d-byte header, port %d, guard profiles %s",
		protocol.HeaderSize, protocol.DefaultPort, strings.Join(names, ", "))
}
