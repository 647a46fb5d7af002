package manifest

// JobKind identifies the backend action a job requests.
type JobKind string

const (
	JobCoprBuild         JobKind = "copr_build"
	JobProposeDownstream JobKind = "propose_downstream"
	JobKojiBuild         JobKind = "koji_build"
	JobBodhiUpdate       JobKind = "bodhi_update"
)

// KnownJobKinds lists every job kind the engine understands, in a stable order.
var KnownJobKinds = []JobKind{JobCoprBuild, JobProposeDownstream, JobKojiBuild, JobBodhiUpdate}

// TriggerKind identifies the class of repository event that activates a job.
type TriggerKind string

const (
	TriggerPullRequest TriggerKind = "pull_request"
	TriggerCommit      TriggerKind = "commit"
	TriggerRelease     TriggerKind = "release"

	// TriggerNone is never written in a manifest; it marks normalized events
	// the engine does not recognize. A TriggerNone event matches no job.
	TriggerNone TriggerKind = "none"
)

// KnownTriggerKinds lists the trigger kinds a manifest may declare.
var KnownTriggerKinds = []TriggerKind{TriggerPullRequest, TriggerCommit, TriggerRelease}

// Job is one trigger->action mapping from a manifest. Jobs are immutable once
// loaded; the engine refers to them by index into Manifest.Jobs.
type Job struct {
	Kind    JobKind     `yaml:"job"`
	Trigger TriggerKind `yaml:"trigger"`

	// Branch restricts commit-triggered jobs to a branch, exact or glob.
	Branch string `yaml:"branch,omitempty"`

	// Copr-style build options.
	Owner           string   `yaml:"owner,omitempty"`
	Project         string   `yaml:"project,omitempty"`
	EnableNet       bool     `yaml:"enable_net,omitempty"`
	Targets         []string `yaml:"targets,omitempty"`
	AdditionalRepos []string `yaml:"additional_repos,omitempty"`

	// Dist-git options for propose_downstream, koji_build and bodhi_update.
	DistGitBranches []string `yaml:"dist_git_branches,omitempty"`
	UpdateRelease   *bool    `yaml:"update_release,omitempty"`
}

// BumpRelease reports whether propose_downstream should bump the release
// field. Defaults to true when the manifest does not say otherwise.
func (j Job) BumpRelease() bool {
	if j.UpdateRelease == nil {
		return true
	}
	return *j.UpdateRelease
}

// Manifest is the loaded, validated job list plus package-level metadata.
// It is immutable after Load; reloading swaps the whole value (see Store).
type Manifest struct {
	SpecfilePath          string `yaml:"specfile_path,omitempty"`
	UpstreamPackageName   string `yaml:"upstream_package_name,omitempty"`
	DownstreamPackageName string `yaml:"downstream_package_name,omitempty"`

	// DefaultTargets applies to copr_build jobs that declare no targets.
	DefaultTargets []string `yaml:"default_targets,omitempty"`

	Jobs []Job `yaml:"jobs"`
}

// Job returns the job at index i, or false when the index is stale. BuildUnits
// reference jobs by index rather than by pointer; jobs outlive any single
// dispatch batch but not a manifest reload.
func (m *Manifest) Job(i int) (Job, bool) {
	if m == nil || i < 0 || i >= len(m.Jobs) {
		return Job{}, false
	}
	return m.Jobs[i], true
}
