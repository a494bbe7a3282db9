package database

import (
	"database/sql"
	"fmt"
	"time"
)

var _ RunRepository = (*SQLRunRepository)(nil)

// SQLRunRepository records pipeline runs and per-source fetch outcomes.
// The ledger is observational: nothing in it feeds back into the merge.
type SQLRunRepository struct {
	db *DB
}

// NewRunRepository creates a new run repository
func NewRunRepository(db *DB) *SQLRunRepository {
	return &SQLRunRepository{db: db}
}

// CreateRun inserts a run in the running state and returns its ID
func (r *SQLRunRepository) CreateRun(startedAt time.Time) (int64, error) {
	result, err := r.db.Exec(`
		INSERT INTO runs (started_at, status)
		VALUES (?, ?)
	`, startedAt.UTC(), RunStatusRunning)
	if err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}

	return id, nil
}

// FinishRun records the terminal state of a run
func (r *SQLRunRepository) FinishRun(runID int64, status string, outputHash string, outputBytes int64, changed bool, runErr string) error {
	_, err := r.db.Exec(`
		UPDATE runs
		SET finished_at = ?, status = ?, output_hash = ?, output_bytes = ?, changed = ?, error = ?
		WHERE id = ?
	`, time.Now().UTC(), status, outputHash, outputBytes, changed, runErr, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}

	return nil
}

// RecordFetch appends one per-source fetch outcome to a run
func (r *SQLRunRepository) RecordFetch(fetch Fetch) error {
	_, err := r.db.Exec(`
		INSERT INTO fetches (run_id, source_name, source_url, position, attempts, bytes, channels_kept, programmes_kept, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, fetch.RunID, fetch.SourceName, fetch.SourceURL, fetch.Position, fetch.Attempts,
		fetch.Bytes, fetch.ChannelsKept, fetch.ProgrammesKept, fetch.DurationMs)
	if err != nil {
		return fmt.Errorf("failed to record fetch: %w", err)
	}

	return nil
}

// GetLastSuccessfulRun returns the most recent run that finished ok, or
// nil when none exists yet.
func (r *SQLRunRepository) GetLastSuccessfulRun() (*Run, error) {
	var run Run
	var finishedAt sql.NullTime

	err := r.db.QueryRow(`
		SELECT id, started_at, finished_at, status, output_hash, output_bytes, changed, error
		FROM runs
		WHERE status = ?
		ORDER BY id DESC
		LIMIT 1
	`, RunStatusOK).Scan(&run.ID, &run.StartedAt, &finishedAt, &run.Status,
		&run.OutputHash, &run.OutputBytes, &run.Changed, &run.Error)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query last successful run: %w", err)
	}

	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return &run, nil
}

// GetFetches returns the fetch outcomes of a run in merge order
func (r *SQLRunRepository) GetFetches(runID int64) ([]Fetch, error) {
	rows, err := r.db.Query(`
		SELECT id, run_id, source_name, source_url, position, attempts, bytes, channels_kept, programmes_kept, duration_ms
		FROM fetches
		WHERE run_id = ?
		ORDER BY position
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer rows.Close()

	var fetches []Fetch
	for rows.Next() {
		var f Fetch
		if err := rows.Scan(&f.ID, &f.RunID, &f.SourceName, &f.SourceURL, &f.Position,
			&f.Attempts, &f.Bytes, &f.ChannelsKept, &f.ProgrammesKept, &f.DurationMs); err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		fetches = append(fetches, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read fetches: %w", err)
	}

	return fetches, nil
}
