package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/mattjoyce/forgeline/internal/events"
	"github.com/mattjoyce/forgeline/internal/log"
	"github.com/mattjoyce/forgeline/internal/manifest"
)

// Limits bounds one backend's dispatch behavior.
type Limits struct {
	// MaxInFlight caps concurrent calls to the backend. Shared rate limits
	// live on the backend side; this keeps us from tripping them.
	MaxInFlight int64

	// MaxAttempts bounds backend invocations per unit, transient retries
	// included.
	MaxAttempts int

	// BackoffBase is the first retry delay; it doubles per attempt.
	BackoffBase time.Duration

	// CallTimeout bounds a single backend call. Expiry counts as transient.
	CallTimeout time.Duration
}

// DefaultLimits returns the per-backend defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxInFlight: 4,
		MaxAttempts: 3,
		BackoffBase: 2 * time.Second,
		CallTimeout: 60 * time.Second,
	}
}

// backendName maps a job kind to the backend it dispatches to. Limits and
// in-flight counters are keyed by backend, not by job kind.
func backendName(kind manifest.JobKind) string {
	switch kind {
	case manifest.JobCoprBuild:
		return "copr"
	case manifest.JobProposeDownstream:
		return "distgit"
	case manifest.JobKojiBuild:
		return "koji"
	case manifest.JobBodhiUpdate:
		return "bodhi"
	}
	return "unknown"
}

// Dispatcher executes BuildUnits against external backends. Units within a
// batch are independent and run concurrently; the per-backend semaphore is
// the only state shared between them.
type Dispatcher struct {
	backends Backends
	limits   map[string]Limits
	sems     map[string]*semaphore.Weighted
	hub      *events.Hub
	logger   *slog.Logger

	// sleep is swapped out by tests to observe backoff without waiting.
	sleep func(d time.Duration)
}

// SetSleep overrides the backoff sleep function. Testing only.
func (d *Dispatcher) SetSleep(fn func(time.Duration)) {
	d.sleep = fn
}

// New creates a Dispatcher. limits may be nil or partial; backends without an
// entry get DefaultLimits. hub may be nil when nobody watches live status.
func New(backends Backends, limits map[string]Limits, hub *events.Hub) *Dispatcher {
	d := &Dispatcher{
		backends: backends,
		limits:   make(map[string]Limits, 4),
		sems:     make(map[string]*semaphore.Weighted, 4),
		hub:      hub,
		logger:   log.WithComponent("dispatch"),
		sleep:    time.Sleep,
	}
	for _, name := range []string{"copr", "distgit", "koji", "bodhi"} {
		l, ok := limits[name]
		if !ok {
			l = DefaultLimits()
		}
		if l.MaxInFlight <= 0 {
			l.MaxInFlight = DefaultLimits().MaxInFlight
		}
		if l.MaxAttempts <= 0 {
			l.MaxAttempts = DefaultLimits().MaxAttempts
		}
		if l.CallTimeout <= 0 {
			l.CallTimeout = DefaultLimits().CallTimeout
		}
		d.limits[name] = l
		d.sems[name] = semaphore.NewWeighted(l.MaxInFlight)
	}
	return d
}

// Dispatch executes a batch of units and returns one Result per unit, in unit
// order. It never fails as a whole: backend failures surface per-unit, and
// cancelling ctx skips only units that have not started. Units already past
// the in-flight gate run to completion and keep their real result.
func (d *Dispatcher) Dispatch(ctx context.Context, batchID string, units []BuildUnit) []Result {
	results := make([]Result, len(units))

	var wg sync.WaitGroup
	for i := range units {
		results[i] = Result{Unit: units[i], Status: StatusPending}
		d.notify(batchID, &results[i])

		wg.Add(1)
		go func(res *Result) {
			defer wg.Done()
			d.runUnit(ctx, batchID, res)
		}(&results[i])
	}
	wg.Wait()
	return results
}

func (d *Dispatcher) runUnit(ctx context.Context, batchID string, res *Result) {
	unit := res.Unit
	backend := backendName(unit.Kind)
	limits := d.limits[backend]
	unitLogger := log.WithUnit(unit.ID).With("batch_id", batchID, "backend", backend, "target", unit.Target)

	sem := d.sems[backend]
	if err := sem.Acquire(ctx, 1); err != nil {
		// Batch cancelled while the unit was still queued behind the
		// in-flight cap. Skipped, not failed: no backend ever saw it.
		res.Status = StatusSkipped
		res.ErrorDetail = "batch cancelled before dispatch"
		res.CompletedAt = time.Now().UTC()
		unitLogger.Info("unit skipped", "reason", "batch cancelled")
		d.notify(batchID, res)
		return
	}
	defer sem.Release(1)

	res.Status = StatusRunning
	res.StartedAt = time.Now().UTC()
	d.notify(batchID, res)
	unitLogger.Info("unit dispatching", "kind", unit.Kind)

	// From here the unit counts as started: backend calls get a context
	// detached from batch cancellation so a superseding event cannot lose
	// an in-flight result.
	callBase := context.WithoutCancel(ctx)

	var lastErr error
	for attempt := 1; attempt <= limits.MaxAttempts; attempt++ {
		res.Attempts = attempt

		callCtx, cancel := context.WithTimeout(callBase, limits.CallTimeout)
		ref, err := d.invoke(callCtx, unit)
		cancel()

		if err == nil {
			res.Status = StatusSucceeded
			res.BackendRef = ref
			res.CompletedAt = time.Now().UTC()
			unitLogger.Info("unit succeeded", "backend_ref", ref, "attempts", attempt)
			d.notify(batchID, res)
			return
		}

		lastErr = err
		if !IsTransient(err) {
			unitLogger.Warn("permanent backend error", "error", err, "attempts", attempt)
			break
		}

		if attempt < limits.MaxAttempts {
			backoff := limits.BackoffBase << (attempt - 1)
			unitLogger.Warn("transient backend error, retrying", "error", err, "attempt", attempt, "backoff", backoff)
			d.sleep(backoff)
		} else {
			unitLogger.Warn("transient backend error, attempts exhausted", "error", err, "attempts", attempt)
		}
	}

	res.Status = StatusFailed
	res.ErrorDetail = lastErr.Error()
	res.CompletedAt = time.Now().UTC()
	d.notify(batchID, res)
}

// invoke performs the single backend call appropriate to the unit's kind.
func (d *Dispatcher) invoke(ctx context.Context, unit BuildUnit) (string, error) {
	switch unit.Kind {
	case manifest.JobCoprBuild:
		if d.backends.Copr == nil {
			return "", Permanent("copr", fmt.Errorf("no build backend configured"))
		}
		return d.backends.Copr.SubmitBuild(ctx, BuildRequest{
			Source:          unit.Source,
			Target:          unit.Target,
			Owner:           unit.Options.Owner,
			Project:         unit.Options.Project,
			EnableNet:       unit.Options.EnableNet,
			AdditionalRepos: unit.Options.AdditionalRepos,
		})

	case manifest.JobProposeDownstream:
		if d.backends.DistGit == nil {
			return "", Permanent("distgit", fmt.Errorf("no downstream-propose backend configured"))
		}
		return d.backends.DistGit.ProposeUpdate(ctx, ProposeRequest{
			Source:          unit.Source,
			DistGitBranches: unit.Options.DistGitBranches,
			BumpRelease:     unit.Options.BumpRelease,
		})

	case manifest.JobKojiBuild:
		if d.backends.Koji == nil {
			return "", Permanent("koji", fmt.Errorf("no package-build backend configured"))
		}
		return d.backends.Koji.BuildPackage(ctx, PackageBuildRequest{
			Source:        unit.Source,
			DistGitBranch: unit.Target,
		})

	case manifest.JobBodhiUpdate:
		if d.backends.Bodhi == nil {
			return "", Permanent("bodhi", fmt.Errorf("no update-publish backend configured"))
		}
		return d.backends.Bodhi.PublishUpdate(ctx, UpdateRequest{
			Source:        unit.Source,
			ReleaseBranch: unit.Target,
		})
	}

	return "", Permanent("unknown", fmt.Errorf("unknown job kind %q", unit.Kind))
}

func (d *Dispatcher) notify(batchID string, res *Result) {
	if d.hub == nil {
		return
	}
	d.hub.Publish(events.StatusEvent{
		BatchID:  batchID,
		UnitID:   res.Unit.ID,
		Kind:     string(res.Unit.Kind),
		Target:   res.Unit.Target,
		Status:   string(res.Status),
		Attempts: res.Attempts,
		Detail:   res.ErrorDetail,
	})
}
