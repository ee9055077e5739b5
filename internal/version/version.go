// Package version holds the build version reported by /status.
package version

// Version may be overridden at build time with -ldflags.
var Version = "1.0"
