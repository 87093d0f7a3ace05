package version

import (
	"fmt"
	"runtime/debug"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

// Info is the build information of the running binary.
type Info struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildTime string `json:"build_time"`
	GoVersion string `json:"go_version"`
	Dirty     bool   `json:"dirty"`
}

// Get returns the build information, filling gaps from the module's VCS
// stamp.
func Get() Info {
	info := Info{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.GitCommit == "" {
				info.GitCommit = s.Value
			}
		case "vcs.time":
			if info.BuildTime == "" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			info.Dirty = s.Value == "true"
		}
	}
	if len(info.GitCommit) > 7 {
		info.GitCommit = info.GitCommit[:7]
	}
	return info
}

// String renders "1.2.0 (abc1234, built 2026-01-02T15:04:05Z)".
func (i Info) String() string {
	out := i.Version
	switch {
	case i.GitCommit != "" && i.Dirty:
		out += fmt.Sprintf(" (%s-dirty", i.GitCommit)
	case i.GitCommit != "":
		out += fmt.Sprintf(" (%s", i.GitCommit)
	default:
		return out
	}
	if i.BuildTime != "" {
		out += ", built " + i.BuildTime
	}
	return out + ")"
}

// UserAgent returns "resclient/<version>".
func UserAgent() string {
	return "resclient/" + Version
}
