// Package report persists dispatch outcomes and produces per-batch summaries
// the hosting service can render as commit-status checks.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattjoyce/forgeline/internal/dispatch"
	"github.com/mattjoyce/forgeline/internal/event"
)

var ErrBatchNotFound = errors.New("batch not found")

// Store writes dispatch batches and results to the SQLite log.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// BeginBatch records the batch row before dispatch starts, so an operator can
// see a batch that is still in flight.
func (s *Store) BeginBatch(ctx context.Context, batchID string, ev event.Canonical) error {
	if batchID == "" {
		return fmt.Errorf("batchID is empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dispatch_batch(id, event_id, forge, trigger, branch, repo_owner, repo_name, created_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?);
`, batchID, ev.ID, ev.Forge, string(ev.Trigger), ev.Branch, ev.Owner, ev.Repo, now)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// CompleteBatch records all unit results and stamps the batch completed. One
// transaction: a batch either appears fully reported or still in flight.
func (s *Store) CompleteBatch(ctx context.Context, batchID string, results []dispatch.Result) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, res := range results {
		var startedAt, completedAt any
		if !res.StartedAt.IsZero() {
			startedAt = res.StartedAt.Format(time.RFC3339Nano)
		}
		if !res.CompletedAt.IsZero() {
			completedAt = res.CompletedAt.Format(time.RFC3339Nano)
		}
		var errDetail any
		if res.ErrorDetail != "" {
			errDetail = res.ErrorDetail
		}
		var backendRef any
		if res.BackendRef != "" {
			backendRef = res.BackendRef
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO dispatch_log(id, batch_id, job_index, job_kind, target, status, attempts, backend_ref, error, started_at, completed_at)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
`, res.Unit.ID, batchID, res.Unit.JobIndex, string(res.Unit.Kind), res.Unit.Target,
			string(res.Status), res.Attempts, backendRef, errDetail, startedAt, completedAt)
		if err != nil {
			return fmt.Errorf("insert dispatch_log: %w", err)
		}
	}

	completed := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := tx.ExecContext(ctx, `
UPDATE dispatch_batch SET completed_at = ? WHERE id = ?;
`, completed, batchID); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Line is one target/branch row of a batch report.
type Line struct {
	JobKind    string
	Target     string
	Status     string
	Attempts   int
	BackendRef string
	Error      string
}

// Summary is the per-batch dispatch report.
type Summary struct {
	BatchID   string
	EventID   string
	Trigger   string
	Branch    string
	Completed bool
	Lines     []Line
	Succeeded int
	Failed    int
	Skipped   int
}

// BatchSummary loads the report for one batch, lines in insertion order.
func (s *Store) BatchSummary(ctx context.Context, batchID string) (*Summary, error) {
	sum := &Summary{BatchID: batchID}

	var completedAt sql.NullString
	err := s.db.QueryRowContext(ctx, `
SELECT event_id, trigger, branch, completed_at FROM dispatch_batch WHERE id = ?;
`, batchID).Scan(&sum.EventID, &sum.Trigger, &sum.Branch, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrBatchNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load batch: %w", err)
	}
	sum.Completed = completedAt.Valid

	rows, err := s.db.QueryContext(ctx, `
SELECT job_kind, target, status, attempts, backend_ref, error
FROM dispatch_log
WHERE batch_id = ?
ORDER BY rowid ASC;
`, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line Line
		var backendRef, errDetail sql.NullString
		if err := rows.Scan(&line.JobKind, &line.Target, &line.Status, &line.Attempts, &backendRef, &errDetail); err != nil {
			return nil, fmt.Errorf("scan batch line: %w", err)
		}
		if backendRef.Valid {
			line.BackendRef = backendRef.String
		}
		if errDetail.Valid {
			line.Error = errDetail.String
		}
		switch line.Status {
		case string(dispatch.StatusSucceeded):
			sum.Succeeded++
		case string(dispatch.StatusFailed):
			sum.Failed++
		case string(dispatch.StatusSkipped):
			sum.Skipped++
		}
		sum.Lines = append(sum.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate batch lines: %w", err)
	}
	return sum, nil
}
