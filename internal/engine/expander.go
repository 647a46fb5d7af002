package engine

import (
	"strings"

	"github.com/google/uuid"

	"github.com/mattjoyce/forgeline/internal/dispatch"
	"github.com/mattjoyce/forgeline/internal/event"
	"github.com/mattjoyce/forgeline/internal/manifest"
)

// Expand turns one matched job into BuildUnits:
//   - copr_build: one unit per unique target (manifest default targets apply
//     when the job declares none; exact duplicates within a job collapse,
//     first occurrence wins)
//   - koji_build, bodhi_update: one unit per dist-git branch
//   - propose_downstream: exactly one synthetic unit covering the branch set
//
// Expand never fails; validation already ruled out empty matrices.
func Expand(m *manifest.Manifest, mj MatchedJob, ev event.Canonical) []dispatch.BuildUnit {
	job := mj.Job
	source := sourceRef(ev)
	opts := optionsSnapshot(job)

	switch job.Kind {
	case manifest.JobCoprBuild:
		targets := job.Targets
		if len(targets) == 0 {
			targets = m.DefaultTargets
		}
		targets = dedupeTargets(targets)
		units := make([]dispatch.BuildUnit, 0, len(targets))
		for _, target := range targets {
			units = append(units, newUnit(mj.Index, job.Kind, target, source, opts))
		}
		return units

	case manifest.JobProposeDownstream:
		label := strings.Join(job.DistGitBranches, ",")
		return []dispatch.BuildUnit{newUnit(mj.Index, job.Kind, label, source, opts)}

	case manifest.JobKojiBuild, manifest.JobBodhiUpdate:
		branches := dedupeTargets(job.DistGitBranches)
		units := make([]dispatch.BuildUnit, 0, len(branches))
		for _, branch := range branches {
			units = append(units, newUnit(mj.Index, job.Kind, branch, source, opts))
		}
		return units
	}

	return nil
}

// Resolve runs match and expansion for one event against one manifest and
// returns the full ordered batch of BuildUnits. Pure: resolving the same
// (manifest, event) pair again yields an equivalent batch (same targets, same
// options; unit IDs are fresh).
func Resolve(m *manifest.Manifest, ev event.Canonical) []dispatch.BuildUnit {
	var units []dispatch.BuildUnit
	for _, mj := range Match(m, ev) {
		units = append(units, Expand(m, mj, ev)...)
	}
	return units
}

func newUnit(jobIndex int, kind manifest.JobKind, target string, source dispatch.SourceRef, opts dispatch.Options) dispatch.BuildUnit {
	return dispatch.BuildUnit{
		ID:       uuid.NewString(),
		JobIndex: jobIndex,
		Kind:     kind,
		Target:   target,
		Source:   source,
		Options:  opts,
	}
}

func sourceRef(ev event.Canonical) dispatch.SourceRef {
	return dispatch.SourceRef{
		Owner:  ev.Owner,
		Repo:   ev.Repo,
		Branch: ev.Branch,
		Commit: ev.Commit,
		Tag:    ev.Tag,
	}
}

// optionsSnapshot copies the job's options into the unit so later manifest
// reloads cannot change a unit mid-flight. Slices are copied, not aliased.
func optionsSnapshot(job manifest.Job) dispatch.Options {
	return dispatch.Options{
		Owner:           job.Owner,
		Project:         job.Project,
		EnableNet:       job.EnableNet,
		AdditionalRepos: append([]string(nil), job.AdditionalRepos...),
		DistGitBranches: append([]string(nil), job.DistGitBranches...),
		BumpRelease:     job.BumpRelease(),
	}
}

// dedupeTargets collapses exact duplicate identifiers, preserving first-seen
// order.
func dedupeTargets(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
