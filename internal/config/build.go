package config

// Linker-injected build metadata, set with:
//
//	go build -ldflags "-X streetcrime/internal/config.version=1.2.3 \
//	    -X streetcrime/internal/config.commit=$(git rev-parse --short HEAD) \
//	    -X streetcrime/internal/config.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// NewBuildInfo returns the linker-injected metadata.
func NewBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   version,
		Commit:    commit,
		BuildTime: buildTime,
	}
}
