// Package engine resolves a manifest against one canonical event: matching
// selects the activated jobs, expansion turns them into concrete BuildUnits.
// Both stages are pure functions of their inputs; neither can fail at runtime.
package engine

import (
	"path"

	"github.com/mattjoyce/forgeline/internal/event"
	"github.com/mattjoyce/forgeline/internal/manifest"
)

// MatchedJob pairs a job with its manifest index. The index is the weak
// reference every downstream artifact carries; manifest order is tie-break
// priority, so it is preserved end to end.
type MatchedJob struct {
	Index int
	Job   manifest.Job
}

// Match returns the jobs activated by ev, in manifest order. A job matches
// iff its trigger kind equals the event's, its branch filter (if any) accepts
// the event branch, and release-triggered jobs see an actual release.
//
// Matching is total: zero matches is a normal no-op outcome, and overlapping
// jobs are all returned — the engine dispatches them independently rather
// than merging conflicting options.
func Match(m *manifest.Manifest, ev event.Canonical) []MatchedJob {
	if m == nil || ev.Trigger == manifest.TriggerNone {
		return nil
	}

	var out []MatchedJob
	for i, job := range m.Jobs {
		if job.Trigger != ev.Trigger {
			continue
		}
		if job.Trigger == manifest.TriggerRelease && !ev.IsRelease {
			continue
		}
		if !branchMatches(job.Branch, ev.Branch) {
			continue
		}
		out = append(out, MatchedJob{Index: i, Job: job})
	}
	return out
}

// branchMatches applies a job's branch filter: absent filters accept
// everything, otherwise exact string equality or glob-style matching.
func branchMatches(filter, branch string) bool {
	if filter == "" {
		return true
	}
	if filter == branch {
		return true
	}
	// path.Match errors only on malformed patterns; a filter that is not a
	// valid glob simply falls back to the exact comparison above.
	ok, err := path.Match(filter, branch)
	return err == nil && ok
}
