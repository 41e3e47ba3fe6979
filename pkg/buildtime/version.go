package buildtime

import (
	_ "embed"
	"strings"
)

// VERSION and revision are replaced by the release build.

//go:embed VERSION
var version string

//go:embed revision
var revision string

func init() {
	version = strings.TrimSpace(version)
	revision = strings.TrimSpace(revision)
}

// Version of exodash.
func Version() string {
	return version
}

// Revision is the commit exodash is built from.
func Revision() string {
	return revision
}

func VersionString() string {
	return version + " (commit: " + revision + ")"
}
