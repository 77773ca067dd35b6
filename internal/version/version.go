// Package version exposes build information for streamfold.
//
// Version, Commit and Date are set with ldflags:
//
//	go build -ldflags "-X github.com/jmylchreest/streamfold/internal/version.Version=x.y.z \
//	                   -X github.com/jmylchreest/streamfold/internal/version.Commit=$(git rev-parse HEAD)"
//
// Without ldflags the module version and VCS stamp recorded by the Go
// toolchain are used.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// Build-time variables injected via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// ApplicationName is the canonical name of this application.
const ApplicationName = "streamfold"

// Info contains structured version information.
type Info struct {
	Version   string `json:"version" yaml:"version"`
	Commit    string `json:"commit" yaml:"commit"`
	Date      string `json:"date" yaml:"date"`
	GoVersion string `json:"go_version" yaml:"go_version"`
	Platform  string `json:"platform" yaml:"platform"`
}

var (
	infoOnce sync.Once
	info     Info
)

// GetInfo returns all version information as a structured type.
func GetInfo() Info {
	infoOnce.Do(func() {
		info = Info{
			Version:   Version,
			Commit:    Commit,
			Date:      Date,
			GoVersion: runtime.Version(),
			Platform:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
		}
		fillFromBuildInfo(&info)
	})
	return info
}

func fillFromBuildInfo(i *Info) {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	if i.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		i.Version = bi.Main.Version
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if i.Commit == "unknown" {
				i.Commit = s.Value
			}
		case "vcs.time":
			if i.Date == "unknown" {
				i.Date = s.Value
			}
		}
	}
}

// String returns a human-readable version string.
func String() string {
	i := GetInfo()
	if len(i.Commit) >= 8 && i.Commit != "unknown" {
		return fmt.Sprintf("%s version %s (commit: %s, built: %s, %s, %s)",
			ApplicationName, i.Version, i.Commit[:8], i.Date, i.GoVersion, i.Platform)
	}
	return fmt.Sprintf("%s version %s (%s, %s)", ApplicationName, i.Version, i.GoVersion, i.Platform)
}

// Short returns the bare version, as used in the OpenAPI document and the
// Stremio manifest.
func Short() string {
	return GetInfo().Version
}

// UserAgent returns the User-Agent sent to addons and metadata providers.
func UserAgent() string {
	return fmt.Sprintf("%s/%s", ApplicationName, GetInfo().Version)
}
