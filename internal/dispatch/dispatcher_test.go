package dispatch_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mattjoyce/forgeline/internal/dispatch"
	"github.com/mattjoyce/forgeline/internal/dispatch/mocks"
	"github.com/mattjoyce/forgeline/internal/events"
	"github.com/mattjoyce/forgeline/internal/manifest"
)

func coprUnit(id, target string) dispatch.BuildUnit {
	return dispatch.BuildUnit{
		ID:     id,
		Kind:   manifest.JobCoprBuild,
		Target: target,
		Source: dispatch.SourceRef{Owner: "containers", Repo: "netavark", Branch: "main", Commit: "abc123"},
		Options: dispatch.Options{
			Project:   "netavark-builds",
			EnableNet: true,
		},
	}
}

func noSleep(d *dispatch.Dispatcher) {
	d.SetSleep(func(time.Duration) {})
}

func TestDispatchAllUnitsSucceed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dispatch.BuildRequest) (string, error) {
			return "build-" + req.Target, nil
		}).Times(2)

	hub := events.NewHub(64)
	d := dispatch.New(dispatch.Backends{Copr: copr}, nil, hub)
	noSleep(d)

	units := []dispatch.BuildUnit{
		coprUnit("u-1", "fedora-rawhide-x86_64"),
		coprUnit("u-2", "fedora-rawhide-aarch64"),
	}
	results := d.Dispatch(context.Background(), "batch-1", units)

	require.Len(t, results, len(units), "one result per unit, always")
	for i, res := range results {
		assert.Equal(t, units[i].ID, res.Unit.ID, "unit order preserved")
		assert.Equal(t, dispatch.StatusSucceeded, res.Status)
		assert.Equal(t, "build-"+units[i].Target, res.BackendRef)
		assert.Equal(t, 1, res.Attempts)
		assert.False(t, res.CompletedAt.IsZero())
	}

	// Every unit reached a terminal status on the hub.
	terminal := map[string]string{}
	for _, ev := range hub.SnapshotSince(0) {
		if dispatch.Status(ev.Status).Terminal() {
			terminal[ev.UnitID] = ev.Status
		}
	}
	assert.Equal(t, map[string]string{"u-1": "succeeded", "u-2": "succeeded"}, terminal)
}

func TestDispatchRoutesByKind(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	distgit := mocks.NewMockDownstreamProposer(ctrl)
	distgit.EXPECT().ProposeUpdate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dispatch.ProposeRequest) (string, error) {
			assert.Equal(t, []string{"fedora-41", "fedora-42"}, req.DistGitBranches)
			assert.True(t, req.BumpRelease)
			return "pr-7", nil
		})

	koji := mocks.NewMockPackageBuilder(ctrl)
	koji.EXPECT().BuildPackage(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dispatch.PackageBuildRequest) (string, error) {
			assert.Equal(t, "fedora-41", req.DistGitBranch)
			return "task-42", nil
		})

	bodhi := mocks.NewMockUpdatePublisher(ctrl)
	bodhi.EXPECT().PublishUpdate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dispatch.UpdateRequest) (string, error) {
			assert.Equal(t, "fedora-41", req.ReleaseBranch)
			return "FEDORA-2026-0001", nil
		})

	d := dispatch.New(dispatch.Backends{DistGit: distgit, Koji: koji, Bodhi: bodhi}, nil, nil)
	noSleep(d)

	units := []dispatch.BuildUnit{
		{
			ID: "u-propose", Kind: manifest.JobProposeDownstream, Target: "fedora-41,fedora-42",
			Options: dispatch.Options{DistGitBranches: []string{"fedora-41", "fedora-42"}, BumpRelease: true},
		},
		{ID: "u-koji", Kind: manifest.JobKojiBuild, Target: "fedora-41"},
		{ID: "u-bodhi", Kind: manifest.JobBodhiUpdate, Target: "fedora-41"},
	}
	results := d.Dispatch(context.Background(), "batch-2", units)

	require.Len(t, results, 3)
	assert.Equal(t, "pr-7", results[0].BackendRef)
	assert.Equal(t, "task-42", results[1].BackendRef)
	assert.Equal(t, "FEDORA-2026-0001", results[2].BackendRef)
}

func TestDispatchRetriesTransientWithBackoff(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	var calls atomic.Int32
	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, dispatch.BuildRequest) (string, error) {
			if calls.Add(1) < 3 {
				return "", dispatch.Transient("copr", errors.New("backend unavailable"))
			}
			return "build-99", nil
		}).Times(3)

	limits := map[string]dispatch.Limits{
		"copr": {MaxAttempts: 3, BackoffBase: 100 * time.Millisecond},
	}
	d := dispatch.New(dispatch.Backends{Copr: copr}, limits, nil)

	var backoffs []time.Duration
	d.SetSleep(func(dur time.Duration) { backoffs = append(backoffs, dur) })

	results := d.Dispatch(context.Background(), "batch-3", []dispatch.BuildUnit{coprUnit("u-1", "fedora-rawhide-x86_64")})

	require.Len(t, results, 1)
	assert.Equal(t, dispatch.StatusSucceeded, results[0].Status)
	assert.Equal(t, "build-99", results[0].BackendRef)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, backoffs,
		"backoff doubles per attempt")
}

func TestDispatchTransientExhaustsAttempts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		Return("", dispatch.Transient("copr", errors.New("rate limited"))).
		Times(3)

	d := dispatch.New(dispatch.Backends{Copr: copr}, nil, nil)
	noSleep(d)

	results := d.Dispatch(context.Background(), "batch-4", []dispatch.BuildUnit{coprUnit("u-1", "fedora-rawhide-x86_64")})

	require.Len(t, results, 1)
	assert.Equal(t, dispatch.StatusFailed, results[0].Status)
	assert.Equal(t, 3, results[0].Attempts)
	assert.Contains(t, results[0].ErrorDetail, "rate limited")
}

func TestDispatchPermanentErrorFailsImmediately(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		Return("", dispatch.Permanent("copr", errors.New("authorization failed"))).
		Times(1)

	d := dispatch.New(dispatch.Backends{Copr: copr}, nil, nil)
	noSleep(d)

	results := d.Dispatch(context.Background(), "batch-5", []dispatch.BuildUnit{coprUnit("u-1", "fedora-rawhide-x86_64")})

	require.Len(t, results, 1)
	assert.Equal(t, dispatch.StatusFailed, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts, "permanent errors are not retried")
	assert.Contains(t, results[0].ErrorDetail, "authorization failed")
}

func TestDispatchOneFailureDoesNotBlockOthers(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req dispatch.BuildRequest) (string, error) {
			if req.Target == "fedora-rawhide-aarch64" {
				return "", dispatch.Permanent("copr", errors.New("chroot disabled"))
			}
			return "build-1", nil
		}).Times(2)

	d := dispatch.New(dispatch.Backends{Copr: copr}, nil, nil)
	noSleep(d)

	units := []dispatch.BuildUnit{
		coprUnit("u-ok", "fedora-rawhide-x86_64"),
		coprUnit("u-bad", "fedora-rawhide-aarch64"),
	}
	results := d.Dispatch(context.Background(), "batch-6", units)

	require.Len(t, results, 2)
	assert.Equal(t, dispatch.StatusSucceeded, results[0].Status)
	assert.Equal(t, dispatch.StatusFailed, results[1].Status)
}

func TestDispatchMissingBackendIsPermanent(t *testing.T) {
	d := dispatch.New(dispatch.Backends{}, nil, nil)
	noSleep(d)

	results := d.Dispatch(context.Background(), "batch-7", []dispatch.BuildUnit{coprUnit("u-1", "fedora-rawhide-x86_64")})

	require.Len(t, results, 1)
	assert.Equal(t, dispatch.StatusFailed, results[0].Status)
	assert.Equal(t, 1, results[0].Attempts)
	assert.Contains(t, results[0].ErrorDetail, "no build backend configured")
}

func TestDispatchCancelSkipsQueuedUnitsOnly(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	started := make(chan struct{})
	release := make(chan struct{})

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, dispatch.BuildRequest) (string, error) {
			close(started)
			<-release
			return "build-1", nil
		}).Times(1)

	limits := map[string]dispatch.Limits{"copr": {MaxInFlight: 1}}
	d := dispatch.New(dispatch.Backends{Copr: copr}, limits, nil)
	noSleep(d)

	ctx, cancel := context.WithCancel(context.Background())
	units := []dispatch.BuildUnit{
		coprUnit("u-1", "fedora-rawhide-x86_64"),
		coprUnit("u-2", "fedora-rawhide-aarch64"),
	}

	done := make(chan []dispatch.Result, 1)
	go func() { done <- d.Dispatch(ctx, "batch-8", units) }()

	// One unit is in-flight behind the cap of 1; cancel strands the other in
	// the queue, then let the in-flight call finish.
	<-started
	cancel()
	close(release)

	results := <-done
	require.Len(t, results, 2, "cancelled batches still report every unit")

	byStatus := map[dispatch.Status]int{}
	for _, res := range results {
		byStatus[res.Status]++
	}
	assert.Equal(t, 1, byStatus[dispatch.StatusSucceeded], "in-flight unit runs to completion")
	assert.Equal(t, 1, byStatus[dispatch.StatusSkipped], "queued unit is skipped, not failed")

	for _, res := range results {
		if res.Status == dispatch.StatusSkipped {
			assert.Contains(t, res.ErrorDetail, "cancelled")
			assert.Zero(t, res.Attempts, "skipped units never reach a backend")
		}
	}
}

func TestDispatchCallTimeoutIsTransient(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	copr := mocks.NewMockBuildSubmitter(ctrl)
	copr.EXPECT().SubmitBuild(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, _ dispatch.BuildRequest) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}).Times(2)

	limits := map[string]dispatch.Limits{
		"copr": {MaxAttempts: 2, CallTimeout: 20 * time.Millisecond},
	}
	d := dispatch.New(dispatch.Backends{Copr: copr}, limits, nil)
	noSleep(d)

	results := d.Dispatch(context.Background(), "batch-9", []dispatch.BuildUnit{coprUnit("u-1", "fedora-rawhide-x86_64")})

	require.Len(t, results, 1)
	assert.Equal(t, dispatch.StatusFailed, results[0].Status)
	assert.Equal(t, 2, results[0].Attempts, "timeouts are retried as transient")
}

func TestDryRunBackendsSucceedEverywhere(t *testing.T) {
	d := dispatch.New(dispatch.DryRunBackends(), nil, nil)
	noSleep(d)

	units := []dispatch.BuildUnit{
		coprUnit("u-1", "fedora-rawhide-x86_64"),
		{ID: "u-2", Kind: manifest.JobProposeDownstream, Target: "fedora-all",
			Options: dispatch.Options{DistGitBranches: []string{"fedora-all"}}},
		{ID: "u-3", Kind: manifest.JobKojiBuild, Target: "fedora-41"},
		{ID: "u-4", Kind: manifest.JobBodhiUpdate, Target: "fedora-41"},
	}
	results := d.Dispatch(context.Background(), "batch-10", units)

	require.Len(t, results, 4)
	for _, res := range results {
		assert.Equal(t, dispatch.StatusSucceeded, res.Status)
		assert.NotEmpty(t, res.BackendRef)
	}
}
