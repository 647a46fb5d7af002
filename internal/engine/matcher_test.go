package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/forgeline/internal/event"
	"github.com/mattjoyce/forgeline/internal/manifest"
)

func testManifest(t *testing.T) *manifest.Manifest {
	t.Helper()
	m, err := manifest.Load([]byte(`
jobs:
  - job: copr_build
    trigger: pull_request
    targets: [fedora-rawhide-x86_64]
  - job: copr_build
    trigger: commit
    branch: main
    targets: [fedora-rawhide-x86_64]
  - job: copr_build
    trigger: commit
    branch: "release-*"
    project: stable
    targets: [fedora-rawhide-x86_64]
  - job: propose_downstream
    trigger: release
    dist_git_branches: [fedora-all]
  - job: koji_build
    trigger: commit
    branch: main
    dist_git_branches: [fedora-all]
`))
	require.NoError(t, err)
	return m
}

func TestMatchByTrigger(t *testing.T) {
	m := testManifest(t)

	got := Match(m, event.Canonical{Trigger: manifest.TriggerPullRequest, Branch: "main"})
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
}

func TestMatchPreservesManifestOrder(t *testing.T) {
	m := testManifest(t)

	got := Match(m, event.Canonical{Trigger: manifest.TriggerCommit, Branch: "main"})
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].Index)
	assert.Equal(t, 4, got[1].Index)
	assert.Equal(t, manifest.JobCoprBuild, got[0].Job.Kind)
	assert.Equal(t, manifest.JobKojiBuild, got[1].Job.Kind)
}

func TestMatchBranchFilters(t *testing.T) {
	m := testManifest(t)

	tests := []struct {
		name    string
		branch  string
		indices []int
	}{
		{name: "exact match", branch: "main", indices: []int{1, 4}},
		{name: "glob match", branch: "release-1.2", indices: []int{2}},
		{name: "no filter hit", branch: "feature", indices: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Match(m, event.Canonical{Trigger: manifest.TriggerCommit, Branch: tt.branch})
			var indices []int
			for _, mj := range got {
				indices = append(indices, mj.Index)
			}
			assert.Equal(t, tt.indices, indices)
		})
	}
}

func TestMatchReleaseRequiresActualRelease(t *testing.T) {
	m := testManifest(t)

	ev := event.Canonical{Trigger: manifest.TriggerRelease, Tag: "v1.0.0"}
	assert.Empty(t, Match(m, ev), "draft release must not match")

	ev.IsRelease = true
	got := Match(m, ev)
	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].Index)
}

func TestMatchInertEvent(t *testing.T) {
	m := testManifest(t)
	assert.Empty(t, Match(m, event.Canonical{Trigger: manifest.TriggerNone}))
	assert.Empty(t, Match(nil, event.Canonical{Trigger: manifest.TriggerCommit}))
}

func TestBranchMatches(t *testing.T) {
	tests := []struct {
		filter string
		branch string
		want   bool
	}{
		{"", "anything", true},
		{"main", "main", true},
		{"main", "master", false},
		{"release-*", "release-1.2", true},
		{"release-*", "main", false},
		{"epel[89]", "epel9", true},
		{"[invalid", "[invalid", true}, // malformed glob still matches itself
		{"[invalid", "other", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, branchMatches(tt.filter, tt.branch),
			"filter=%q branch=%q", tt.filter, tt.branch)
	}
}
