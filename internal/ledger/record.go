package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/perflab/benchmatrix/internal/matrix"
)

// timestampLayout is RFC 3339 with fixed-width nanoseconds.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded generation run.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	InputHash string    `json:"input_hash"`
	JobCount  int       `json:"job_count"`
}

// RecordRun appends one generation run and its full job list, atomically.
// The job order is the emission order; stability verification depends on
// positions being recorded exactly as emitted.
func (l *Ledger) RecordRun(ctx context.Context, inputHash string, jobs []matrix.JobSpec) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		InputHash: inputHash,
		JobCount:  len(jobs),
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer tx.Rollback()

	// Fixed-width timestamp so lexicographic ORDER BY matches time order
	// (RFC3339Nano trims trailing zeros and breaks that).
	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, created_at, input_hash, job_count)
		VALUES (?, ?, ?, ?)
	`, run.ID, run.CreatedAt.Format(timestampLayout), run.InputHash, run.JobCount)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO jobs (run_id, position, slug, spec_json)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	defer stmt.Close()

	for i, job := range jobs {
		specJSON, err := json.Marshal(job)
		if err != nil {
			return Run{}, fmt.Errorf("record run: marshal job %d: %w", i, err)
		}
		if _, err := stmt.ExecContext(ctx, run.ID, i, job.Slug, string(specJSON)); err != nil {
			return Run{}, fmt.Errorf("record run: insert job %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("record run: %w", err)
	}
	return run, nil
}
