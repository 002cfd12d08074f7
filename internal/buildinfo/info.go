package buildinfo

import (
	"runtime"
	"runtime/debug"
)

// Set through -ldflags "-X github.com/rosilesmarcos01/bbms-sub000/internal/buildinfo.Version=...".
var (
	Version    = "v0.1.0"
	CommitHash = "unknown"
)

type Info struct {
	About      string `json:"about,omitempty"`
	Service    string `json:"service,omitempty"`
	Version    string `json:"version,omitempty"`
	CommitHash string `json:"commit_hash,omitempty"`
	GoVersion  string `json:"go_version,omitempty"`
}

// GetBuildInfo describes the running binary. Without a commit from ldflags the
// vcs revision embedded by the go toolchain is used, if there is one.
func GetBuildInfo() Info {
	return Info{
		About:      "https://github.com/rosilesmarcos01/bbms-sub000",
		Service:    "BBMS Auth",
		Version:    Version,
		CommitHash: commit(),
		GoVersion:  runtime.Version(),
	}
}

func commit() string {
	if CommitHash != "unknown" && CommitHash != "" {
		return CommitHash
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return CommitHash
	}
	for _, s := range bi.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			if len(s.Value) > 12 {
				return s.Value[:12]
			}
			return s.Value
		}
	}
	return CommitHash
}
