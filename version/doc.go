// Package version reports the build version of the microcosm binary.
//
// Version, commit and build time are set at compile time via -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/microcosm/version.Version=0.1.0"
package version
