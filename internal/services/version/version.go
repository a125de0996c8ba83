// Package version exposes the daemon's build identity for the device API
// and the startup banner.
package version

import (
	"runtime"
	"time"
)

// Set at build time via -ldflags:
//
//	-X github.com/openlumen/pixelnode/internal/services/version.Version=v1.2.3
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var startedAt = time.Now()

// Info is the build and runtime identity reported by the device API.
type Info struct {
	Version       string    `json:"version"`
	BuildTime     string    `json:"build_time"`
	GitCommit     string    `json:"git_commit"`
	GoVersion     string    `json:"go_version"`
	StartedAt     time.Time `json:"started_at"`
	UptimeSeconds int64     `json:"uptime_seconds"`
}

// Get returns the current build and runtime info.
func Get() Info {
	return Info{
		Version:       Version,
		BuildTime:     BuildTime,
		GitCommit:     GitCommit,
		GoVersion:     runtime.Version(),
		StartedAt:     startedAt,
		UptimeSeconds: int64(time.Since(startedAt).Seconds()),
	}
}
