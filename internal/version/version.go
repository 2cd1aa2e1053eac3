// Package version provides build version information for the binary.
package version

// Version is the build version string, set by ldflags during release
// builds.
var Version = "v1.0.0-dev"

// BuildTime is the build timestamp, set by ldflags.
var BuildTime = "unknown"
