package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/mattjoyce/forgeline/internal/log"
)

// DryRun implements all four backend interfaces without touching any external
// service. Every call logs the request, tagged with the backend it stands in
// for, and returns a synthetic reference ID. The serve command falls back to
// it for backends with no real client wired, which makes a fresh deployment
// observable end to end before credentials exist.
type DryRun struct {
	seq atomic.Int64
}

func NewDryRun() *DryRun {
	return &DryRun{}
}

// DryRunBackends returns a Backends set with every collaborator dry-run.
func DryRunBackends() Backends {
	d := NewDryRun()
	return Backends{Copr: d, DistGit: d, Koji: d, Bodhi: d}
}

func (d *DryRun) ref(prefix string) string {
	return fmt.Sprintf("dryrun-%s-%d", prefix, d.seq.Add(1))
}

func (d *DryRun) SubmitBuild(ctx context.Context, req BuildRequest) (string, error) {
	ref := d.ref("build")
	log.WithBackend("copr").Info("dry-run build", "target", req.Target, "owner", req.Owner, "project", req.Project, "ref", ref)
	return ref, nil
}

func (d *DryRun) ProposeUpdate(ctx context.Context, req ProposeRequest) (string, error) {
	ref := d.ref("pr")
	log.WithBackend("distgit").Info("dry-run propose", "branches", req.DistGitBranches, "bump_release", req.BumpRelease, "ref", ref)
	return ref, nil
}

func (d *DryRun) BuildPackage(ctx context.Context, req PackageBuildRequest) (string, error) {
	ref := d.ref("task")
	log.WithBackend("koji").Info("dry-run package build", "branch", req.DistGitBranch, "ref", ref)
	return ref, nil
}

func (d *DryRun) PublishUpdate(ctx context.Context, req UpdateRequest) (string, error) {
	ref := d.ref("update")
	log.WithBackend("bodhi").Info("dry-run update", "branch", req.ReleaseBranch, "ref", ref)
	return ref, nil
}
