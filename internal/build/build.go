// Package build holds build-time metadata stamped in by the release pipeline.
package build

// ProjectName is used to prefix metrics and annotate structured logs.
const ProjectName = "statekit"

var (
	// Version is the release version, overridden with ldflags.
	Version = "dev"

	// Commit is the git commit the binary was built from, overridden with ldflags.
	Commit = ""
)
