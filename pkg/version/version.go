package version

// These are set during build using -ldflags.
var (
	Version   = "v0.0.0-dev"
	GitCommit = "unknown"
)
