// Package version exposes build-time version metadata.
package version

// BlockmergeVersion is the semantic version string embedded at build time.
var BlockmergeVersion = "0.0.0-src"

// Set version at compile time with
// go build -ldflags "-X blockmerge/pkg/version.BlockmergeVersion=1.0.0" -o blockmerge

// For a release build with version and optimization flags:
// go build -ldflags "-s -w -X blockmerge/pkg/version.BlockmergeVersion=1.0.0" -o blockmerge
