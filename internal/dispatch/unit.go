package dispatch

import (
	"time"

	"github.com/mattjoyce/forgeline/internal/manifest"
)

// Options is the resolved option snapshot a BuildUnit carries. It is copied
// out of the originating job at expansion time so a manifest reload cannot
// change a unit mid-flight.
type Options struct {
	Owner           string
	Project         string
	EnableNet       bool
	AdditionalRepos []string
	DistGitBranches []string
	BumpRelease     bool
}

// BuildUnit is one concrete (job, target) pair ready for backend dispatch.
// JobIndex is a weak reference into the manifest that produced it; units never
// own or point at jobs directly.
type BuildUnit struct {
	ID       string
	JobIndex int
	Kind     manifest.JobKind

	// Target is the build platform for copr_build units and the dist-git
	// branch for koji_build/bodhi_update units. A propose_downstream unit is
	// synthetic: it covers the whole branch set in Options.DistGitBranches
	// and carries the set, comma-joined, as its target label.
	Target string

	Source  SourceRef
	Options Options
}

// Status is the lifecycle state of a dispatched unit.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusSkipped
}

// Result records the terminal outcome of one BuildUnit. Dispatch returns one
// Result per unit, in unit order, always.
type Result struct {
	Unit   BuildUnit
	Status Status

	// BackendRef is the ID the backend assigned (build/task/update/PR id).
	BackendRef string

	// Attempts counts backend invocations, including the successful one.
	Attempts int

	// ErrorDetail carries the final backend error for failed units.
	ErrorDetail string

	StartedAt   time.Time
	CompletedAt time.Time
}
