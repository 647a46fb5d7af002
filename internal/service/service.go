// Package service wires the resolver pipeline together for the hosting
// process: normalize an incoming forge payload, resolve it against the active
// manifest, dispatch the resulting batch, and record the report.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/mattjoyce/forgeline/internal/dispatch"
	"github.com/mattjoyce/forgeline/internal/engine"
	"github.com/mattjoyce/forgeline/internal/event"
	"github.com/mattjoyce/forgeline/internal/log"
	"github.com/mattjoyce/forgeline/internal/manifest"
	"github.com/mattjoyce/forgeline/internal/report"
)

// Receipt is what an ingress caller gets back immediately: the batch is
// dispatched asynchronously after the receipt is returned.
type Receipt struct {
	BatchID string `json:"batch_id,omitempty"`
	EventID string `json:"event_id"`
	Trigger string `json:"trigger"`
	Units   int    `json:"units"`
}

// Service owns the active manifest, the dispatcher and the report store.
type Service struct {
	manifests  *manifest.Store
	dispatcher *dispatch.Dispatcher
	reports    *report.Store
	logger     *slog.Logger

	// Batches for the same (forge, repo, trigger, branch) supersede each
	// other: a new event cancels the previous batch's not-yet-started units.
	mu     sync.Mutex
	active map[string]activeBatch
	wg     sync.WaitGroup
}

type activeBatch struct {
	batchID string
	cancel  context.CancelFunc
}

// New creates a Service. reports may be nil (no persistence, e.g. dry runs).
func New(manifests *manifest.Store, dispatcher *dispatch.Dispatcher, reports *report.Store) *Service {
	return &Service{
		manifests:  manifests,
		dispatcher: dispatcher,
		reports:    reports,
		logger:     log.WithComponent("service"),
		active:     make(map[string]activeBatch),
	}
}

// HandleEvent ingests one raw forge payload: normalize, resolve, and kick off
// asynchronous dispatch. Unknown event shapes are inert — the receipt reports
// zero units and no batch is created. The only errors are persistence
// failures while opening the batch record.
func (s *Service) HandleEvent(ctx context.Context, forge, eventType string, payload []byte) (*Receipt, error) {
	ev := event.Normalize(forge, eventType, payload)
	receipt := &Receipt{EventID: ev.ID, Trigger: string(ev.Trigger)}

	if ev.Trigger == manifest.TriggerNone {
		s.logger.Debug("event not recognized, ignoring", "forge", forge, "event_type", eventType)
		return receipt, nil
	}

	units := engine.Resolve(s.manifests.Active(), ev)
	receipt.Units = len(units)
	if len(units) == 0 {
		s.logger.Info("no jobs matched", "event_id", ev.ID, "trigger", ev.Trigger, "branch", ev.Branch)
		return receipt, nil
	}

	batchID := uuid.NewString()
	receipt.BatchID = batchID

	if s.reports != nil {
		if err := s.reports.BeginBatch(ctx, batchID, ev); err != nil {
			return nil, fmt.Errorf("open batch record: %w", err)
		}
	}

	batchCtx := s.supersede(ev, batchID)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release(ev, batchID)
		s.runBatch(batchCtx, batchID, ev, units)
	}()

	s.logger.Info("batch dispatched",
		"batch_id", batchID, "event_id", ev.ID,
		"trigger", ev.Trigger, "branch", ev.Branch, "units", len(units))
	return receipt, nil
}

// Process resolves and dispatches an already-normalized event synchronously.
// Used by the CLI resolve command and tests; no supersession, no async.
func (s *Service) Process(ctx context.Context, ev event.Canonical) (string, []dispatch.Result, error) {
	units := engine.Resolve(s.manifests.Active(), ev)
	if len(units) == 0 {
		return "", nil, nil
	}
	batchID := uuid.NewString()
	if s.reports != nil {
		if err := s.reports.BeginBatch(ctx, batchID, ev); err != nil {
			return "", nil, fmt.Errorf("open batch record: %w", err)
		}
	}
	results := s.dispatcher.Dispatch(ctx, batchID, units)
	if s.reports != nil {
		if err := s.reports.CompleteBatch(context.WithoutCancel(ctx), batchID, results); err != nil {
			return batchID, results, fmt.Errorf("record batch: %w", err)
		}
	}
	return batchID, results, nil
}

// Shutdown cancels not-yet-started units of every active batch and waits for
// in-flight ones to finish reporting.
func (s *Service) Shutdown() {
	s.mu.Lock()
	for _, ab := range s.active {
		ab.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) runBatch(ctx context.Context, batchID string, ev event.Canonical, units []dispatch.BuildUnit) {
	batchLogger := log.WithBatch(batchID)
	results := s.dispatcher.Dispatch(ctx, batchID, units)

	if s.reports != nil {
		// Recording must survive batch cancellation; no silent loss of status.
		if err := s.reports.CompleteBatch(context.WithoutCancel(ctx), batchID, results); err != nil {
			batchLogger.Error("failed to record batch", "error", err)
		}
	}

	succeeded, failed, skipped := 0, 0, 0
	for _, res := range results {
		switch res.Status {
		case dispatch.StatusSucceeded:
			succeeded++
		case dispatch.StatusFailed:
			failed++
		case dispatch.StatusSkipped:
			skipped++
		}
	}
	batchLogger.Info("batch completed",
		"event_id", ev.ID,
		"succeeded", succeeded, "failed", failed, "skipped", skipped)
}

// supersedeKey groups batches that race for the same physical ref.
func supersedeKey(ev event.Canonical) string {
	return ev.Forge + "/" + ev.Owner + "/" + ev.Repo + "/" + string(ev.Trigger) + "/" + ev.Branch
}

func (s *Service) supersede(ev event.Canonical, batchID string) context.Context {
	key := supersedeKey(ev)
	ctx, cancel := context.WithCancel(context.Background())

	s.mu.Lock()
	if prev, ok := s.active[key]; ok {
		prev.cancel()
		s.logger.Info("superseding active batch", "key", key, "superseded", prev.batchID, "batch_id", batchID)
	}
	s.active[key] = activeBatch{batchID: batchID, cancel: cancel}
	s.mu.Unlock()
	return ctx
}

func (s *Service) release(ev event.Canonical, batchID string) {
	key := supersedeKey(ev)
	s.mu.Lock()
	// Only drop the entry if it is still ours; a newer batch may have
	// replaced it already.
	if ab, ok := s.active[key]; ok && ab.batchID == batchID {
		ab.cancel()
		delete(s.active, key)
	}
	s.mu.Unlock()
}
