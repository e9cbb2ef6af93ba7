// Package version provides build information for the nesview viewer
package version

import (
	"fmt"
	"io"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const unknown = "unknown"

var (
	// These will be set at build time via -ldflags
	Version   = "dev"
	GitCommit = unknown
	BuildTime = unknown
	BuildUser = unknown
)

// BuildInfo contains detailed build information
type BuildInfo struct {
	Version    string `json:"version"`
	GitCommit  string `json:"git_commit"`
	BuildTime  string `json:"build_time"`
	BuildUser  string `json:"build_user"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
	Arch       string `json:"arch"`
	CGOEnabled bool   `json:"cgo_enabled"`
	Modified   bool   `json:"modified"`
}

// GetBuildInfo merges the linker-provided values with the VCS stamp
// recorded by the Go toolchain.
func GetBuildInfo() BuildInfo {
	info := BuildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		BuildUser: BuildUser,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS,
		Arch:      runtime.GOARCH,
	}

	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	for _, setting := range bi.Settings {
		switch setting.Key {
		case "vcs.revision":
			if info.GitCommit == unknown {
				info.GitCommit = setting.Value
			}
		case "vcs.time":
			if info.BuildTime == unknown {
				info.BuildTime = setting.Value
			}
		case "vcs.modified":
			info.Modified = setting.Value == "true"
		case "CGO_ENABLED":
			info.CGOEnabled = setting.Value == "1"
		}
	}
	return info
}

// ShortCommit returns the first seven characters of the commit hash
func (b BuildInfo) ShortCommit() string {
	if len(b.GitCommit) > 7 {
		return b.GitCommit[:7]
	}
	return b.GitCommit
}

// GetVersion returns a simple version string
func GetVersion() string {
	if Version != "dev" {
		return Version
	}
	info := GetBuildInfo()
	if info.GitCommit == unknown {
		return Version
	}
	v := "dev-" + info.ShortCommit()
	if info.Modified {
		v += "-dirty"
	}
	return v
}

// GetDetailedVersion returns a one-line version string
func GetDetailedVersion() string {
	info := GetBuildInfo()

	var b strings.Builder
	fmt.Fprintf(&b, "nesview version %s", info.Version)
	if info.GitCommit != unknown {
		fmt.Fprintf(&b, " (commit %s)", info.ShortCommit())
	}
	if info.BuildTime != unknown {
		built := info.BuildTime
		if t, err := time.Parse(time.RFC3339, built); err == nil {
			built = t.Format("2006-01-02 15:04:05")
		}
		fmt.Fprintf(&b, " built on %s", built)
	}
	fmt.Fprintf(&b, " with %s for %s/%s", info.GoVersion, info.Platform, info.Arch)
	if info.BuildUser != unknown {
		fmt.Fprintf(&b, " by %s", info.BuildUser)
	}
	return b.String()
}

// WriteBuildInfo writes the build information table to w
func WriteBuildInfo(w io.Writer) {
	info := GetBuildInfo()

	fmt.Fprintln(w, "nesview - NES PPU cache viewer")
	fmt.Fprintf(w, "Version:     %s\n", info.Version)
	fmt.Fprintf(w, "Git Commit:  %s\n", info.GitCommit)
	fmt.Fprintf(w, "Build Time:  %s\n", info.BuildTime)
	fmt.Fprintf(w, "Build User:  %s\n", info.BuildUser)
	fmt.Fprintf(w, "Go Version:  %s\n", info.GoVersion)
	fmt.Fprintf(w, "Platform:    %s/%s\n", info.Platform, info.Arch)
	fmt.Fprintf(w, "CGO Enabled: %t\n", info.CGOEnabled)
}
