package manifest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = `
specfile_path: forgeline.spec
upstream_package_name: forgeline
downstream_package_name: forgeline

jobs:
  - job: copr_build
    trigger: pull_request
    targets:
      - fedora-rawhide-x86_64
      - fedora-rawhide-aarch64
  - job: copr_build
    trigger: commit
    branch: main
    owner: "@builders"
    project: nightly
    enable_net: true
    targets:
      - fedora-rawhide-x86_64
  - job: propose_downstream
    trigger: release
    dist_git_branches:
      - fedora-all
  - job: koji_build
    trigger: commit
    dist_git_branches:
      - fedora-all
  - job: bodhi_update
    trigger: commit
    dist_git_branches:
      - fedora-branched
`

func TestLoadSampleManifest(t *testing.T) {
	m, err := Load([]byte(sampleManifest))
	require.NoError(t, err)
	require.Len(t, m.Jobs, 5)

	assert.Equal(t, "forgeline.spec", m.SpecfilePath)
	assert.Equal(t, JobCoprBuild, m.Jobs[0].Kind)
	assert.Equal(t, TriggerPullRequest, m.Jobs[0].Trigger)
	assert.Equal(t, []string{"fedora-rawhide-x86_64", "fedora-rawhide-aarch64"}, m.Jobs[0].Targets)

	assert.Equal(t, "main", m.Jobs[1].Branch)
	assert.Equal(t, "@builders", m.Jobs[1].Owner)
	assert.True(t, m.Jobs[1].EnableNet)

	assert.Equal(t, JobProposeDownstream, m.Jobs[2].Kind)
	assert.True(t, m.Jobs[2].BumpRelease(), "update_release defaults to true")
}

func TestLoadParseErrors(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{
			name: "malformed yaml",
			in:   "jobs: [",
		},
		{
			name: "unknown job kind",
			in: `
jobs:
  - job: mock_build
    trigger: pull_request
    targets: [fedora-rawhide-x86_64]
`,
		},
		{
			name: "unknown trigger kind",
			in: `
jobs:
  - job: copr_build
    trigger: merge
    targets: [fedora-rawhide-x86_64]
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.in))
			require.Error(t, err)
			var parseErr *ParseError
			assert.True(t, errors.As(err, &parseErr), "want *ParseError, got %T", err)
		})
	}
}

func TestValidateErrors(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		wantJob int
	}{
		{
			name: "copr_build without targets or default",
			in: `
jobs:
  - job: copr_build
    trigger: pull_request
`,
			wantJob: 0,
		},
		{
			name: "koji_build without dist_git_branches",
			in: `
jobs:
  - job: koji_build
    trigger: commit
`,
			wantJob: 0,
		},
		{
			name: "bodhi_update without dist_git_branches",
			in: `
jobs:
  - job: bodhi_update
    trigger: commit
`,
			wantJob: 0,
		},
		{
			name: "duplicate jobs",
			in: `
jobs:
  - job: copr_build
    trigger: pull_request
    targets: [fedora-rawhide-x86_64]
  - job: copr_build
    trigger: pull_request
    targets: [fedora-rawhide-x86_64]
`,
			wantJob: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.in))
			require.Error(t, err)
			var valErr *ValidationError
			require.True(t, errors.As(err, &valErr), "want *ValidationError, got %T", err)
			assert.Equal(t, tt.wantJob, valErr.JobIndex)
		})
	}
}

func TestValidateDefaultTargetsSatisfyCoprBuild(t *testing.T) {
	in := `
default_targets: [fedora-rawhide-x86_64]
jobs:
  - job: copr_build
    trigger: pull_request
`
	m, err := Load([]byte(in))
	require.NoError(t, err)
	assert.Empty(t, m.Jobs[0].Targets)
	assert.Equal(t, []string{"fedora-rawhide-x86_64"}, m.DefaultTargets)
}

func TestNearDuplicateJobsAreAllowed(t *testing.T) {
	// Same kind and trigger, different project: not byte-for-byte duplicates.
	in := `
jobs:
  - job: copr_build
    trigger: pull_request
    project: one
    targets: [fedora-rawhide-x86_64]
  - job: copr_build
    trigger: pull_request
    project: two
    targets: [fedora-rawhide-x86_64]
`
	m, err := Load([]byte(in))
	require.NoError(t, err)
	assert.Len(t, m.Jobs, 2)
}

func TestLoadEnvInterpolation(t *testing.T) {
	t.Setenv("FORGELINE_TEST_OWNER", "@builders")
	in := `
jobs:
  - job: copr_build
    trigger: pull_request
    owner: "${FORGELINE_TEST_OWNER}"
    targets: [fedora-rawhide-x86_64]
`
	m, err := Load([]byte(in))
	require.NoError(t, err)
	assert.Equal(t, "@builders", m.Jobs[0].Owner)
}

func TestJobIndexLookup(t *testing.T) {
	m, err := Load([]byte(sampleManifest))
	require.NoError(t, err)

	job, ok := m.Job(2)
	require.True(t, ok)
	assert.Equal(t, JobProposeDownstream, job.Kind)

	_, ok = m.Job(99)
	assert.False(t, ok, "stale index must not resolve")
	_, ok = m.Job(-1)
	assert.False(t, ok)
}
