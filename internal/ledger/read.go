package ledger

import (
	"context"
	"fmt"
	"time"
)

// ListRuns returns recorded runs, newest first. A non-positive limit
// returns all of them.
func (l *Ledger) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, created_at, input_hash, job_count
		FROM runs
		ORDER BY created_at DESC, id DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var createdAt string
		if err := rows.Scan(&r.ID, &createdAt, &r.InputHash, &r.JobCount); err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		r.CreatedAt, err = time.Parse(timestampLayout, createdAt)
		if err != nil {
			return nil, fmt.Errorf("list runs: bad created_at for %s: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunSlugs returns a run's slug sequence in emission order.
func (l *Ledger) RunSlugs(ctx context.Context, runID string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT slug FROM jobs
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("run slugs: %w", err)
	}
	defer rows.Close()

	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("run slugs: %w", err)
		}
		slugs = append(slugs, s)
	}
	return slugs, rows.Err()
}

// StabilityReport is the outcome of comparing every run recorded for one
// input hash. Runs over identical input must emit identical slug
// sequences; a divergence means generation was not deterministic.
type StabilityReport struct {
	InputHash  string   `json:"input_hash"`
	RunIDs     []string `json:"run_ids"`
	Stable     bool     `json:"stable"`
	Divergence string   `json:"divergence,omitempty"` // first mismatch found, empty when stable
}

// VerifyStability compares the slug sequences of all runs recorded for
// one input hash, oldest first. A single run is trivially stable.
func (l *Ledger) VerifyStability(ctx context.Context, inputHash string) (StabilityReport, error) {
	report := StabilityReport{InputHash: inputHash, Stable: true}

	rows, err := l.db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE input_hash = ?
		ORDER BY created_at, id
	`, inputHash)
	if err != nil {
		return report, fmt.Errorf("verify stability: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return report, fmt.Errorf("verify stability: %w", err)
		}
		report.RunIDs = append(report.RunIDs, id)
	}
	if err := rows.Err(); err != nil {
		return report, err
	}
	if len(report.RunIDs) == 0 {
		return report, fmt.Errorf("verify stability: no runs recorded for input hash %s", inputHash)
	}

	baseline, err := l.RunSlugs(ctx, report.RunIDs[0])
	if err != nil {
		return report, err
	}
	for _, id := range report.RunIDs[1:] {
		slugs, err := l.RunSlugs(ctx, id)
		if err != nil {
			return report, err
		}
		if d := diffSlugs(report.RunIDs[0], baseline, id, slugs); d != "" {
			report.Stable = false
			report.Divergence = d
			return report, nil
		}
	}
	return report, nil
}

// InputHashes returns the distinct input hashes present in the ledger,
// oldest first.
func (l *Ledger) InputHashes(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT input_hash FROM runs
		GROUP BY input_hash
		ORDER BY MIN(created_at)
	`)
	if err != nil {
		return nil, fmt.Errorf("input hashes: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("input hashes: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

// diffSlugs reports the first difference between two slug sequences, or
// "" when identical.
func diffSlugs(baseID string, base []string, otherID string, other []string) string {
	if len(base) != len(other) {
		return fmt.Sprintf("run %s emitted %d jobs, run %s emitted %d", baseID, len(base), otherID, len(other))
	}
	for i := range base {
		if base[i] != other[i] {
			return fmt.Sprintf("position %d: run %s emitted %s, run %s emitted %s",
				i, baseID, base[i], otherID, other[i])
		}
	}
	return ""
}
