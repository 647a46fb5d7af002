package dispatch

import "context"

//go:generate mockgen -destination=mocks/mock_backends.go -package=mocks github.com/mattjoyce/forgeline/internal/dispatch BuildSubmitter,DownstreamProposer,PackageBuilder,UpdatePublisher

// SourceRef identifies the upstream source a backend should build from.
type SourceRef struct {
	Owner  string
	Repo   string
	Branch string
	Commit string
	Tag    string
}

// BuildRequest is one Copr-style build submission.
type BuildRequest struct {
	Source          SourceRef
	Target          string
	Owner           string
	Project         string
	EnableNet       bool
	AdditionalRepos []string
}

// ProposeRequest is one downstream update proposal covering a branch set.
type ProposeRequest struct {
	Source          SourceRef
	DistGitBranches []string
	BumpRelease     bool
}

// PackageBuildRequest is one Koji-style build of a single dist-git branch.
type PackageBuildRequest struct {
	Source        SourceRef
	DistGitBranch string
}

// UpdateRequest is one Bodhi-style update publication for a release branch.
type UpdateRequest struct {
	Source        SourceRef
	ReleaseBranch string
}

// The four external collaborators. Implementations live outside the engine;
// they return a backend-assigned reference ID on success and classify
// failures with Transient/Permanent.

// BuildSubmitter is a Copr-like build service.
type BuildSubmitter interface {
	SubmitBuild(ctx context.Context, req BuildRequest) (string, error)
}

// DownstreamProposer opens downstream update PRs from an upstream source.
type DownstreamProposer interface {
	ProposeUpdate(ctx context.Context, req ProposeRequest) (string, error)
}

// PackageBuilder is a Koji-like official package build service.
type PackageBuilder interface {
	BuildPackage(ctx context.Context, req PackageBuildRequest) (string, error)
}

// UpdatePublisher is a Bodhi-like distribution update service.
type UpdatePublisher interface {
	PublishUpdate(ctx context.Context, req UpdateRequest) (string, error)
}

// Backends bundles one implementation of each collaborator.
type Backends struct {
	Copr    BuildSubmitter
	DistGit DownstreamProposer
	Koji    PackageBuilder
	Bodhi   UpdatePublisher
}
