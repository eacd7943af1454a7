package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
)

// ErrSweepNotFound marks a lookup for an unknown sweep id.
var ErrSweepNotFound = errors.New("sweep run not found")

// SweepRepository persists fleet sweep lifecycle records.
type SweepRepository struct {
	db *sql.DB
}

var _ tollscan.SweepStore = (*SweepRepository)(nil)

func NewSweepRepository(db *sql.DB) *SweepRepository {
	return &SweepRepository{db: db}
}

func (r *SweepRepository) CreateRun(ctx context.Context, run model.SweepRun) error {
	samples, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("encode sweep error samples: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO sweep_runs
		(sweep_id, owner_user_id, status, requested, succeeded, failed, saved, duplicates, error_samples, started_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		run.SweepID, run.OwnerUserID, run.Status,
		run.Stats.Requested, run.Stats.Succeeded, run.Stats.Failed,
		run.Stats.Saved, run.Stats.Duplicates, samples, run.StartedAt)
	if err != nil {
		return fmt.Errorf("create sweep run %s: %w", run.SweepID, err)
	}
	return nil
}

func (r *SweepRepository) UpdateRun(ctx context.Context, run model.SweepRun) error {
	samples, err := json.Marshal(run.Errors)
	if err != nil {
		return fmt.Errorf("encode sweep error samples: %w", err)
	}
	var finishedAt any
	if !run.FinishedAt.IsZero() {
		finishedAt = run.FinishedAt
	}
	_, err = r.db.ExecContext(ctx, `UPDATE sweep_runs SET
		status = $1, requested = $2, succeeded = $3, failed = $4, saved = $5,
		duplicates = $6, error_samples = $7, finished_at = $8
	WHERE sweep_id = $9 AND owner_user_id = $10`,
		run.Status, run.Stats.Requested, run.Stats.Succeeded, run.Stats.Failed,
		run.Stats.Saved, run.Stats.Duplicates, samples, finishedAt,
		run.SweepID, run.OwnerUserID)
	if err != nil {
		return fmt.Errorf("update sweep run %s: %w", run.SweepID, err)
	}
	return nil
}

const selectSweepSQL = `SELECT sweep_id, owner_user_id, status, requested, succeeded,
	failed, saved, duplicates, error_samples, started_at, finished_at
FROM sweep_runs`

// GetRun loads one sweep for the tenant.
func (r *SweepRepository) GetRun(ctx context.Context, owner, sweepID string) (model.SweepRun, error) {
	row := r.db.QueryRowContext(ctx, selectSweepSQL+` WHERE sweep_id = $1 AND owner_user_id = $2`, sweepID, owner)
	run, err := scanSweepRun(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return run, ErrSweepNotFound
	}
	return run, err
}

// ListRuns returns the tenant's most recent sweeps, newest first.
func (r *SweepRepository) ListRuns(ctx context.Context, owner string, limit int) ([]model.SweepRun, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, selectSweepSQL+` WHERE owner_user_id = $1 ORDER BY started_at DESC LIMIT $2`, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("list sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []model.SweepRun
	for rows.Next() {
		run, err := scanSweepRun(rows.Scan)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanSweepRun(scan func(...any) error) (model.SweepRun, error) {
	var (
		run        model.SweepRun
		samples    []byte
		finishedAt sql.NullTime
	)
	err := scan(&run.SweepID, &run.OwnerUserID, &run.Status,
		&run.Stats.Requested, &run.Stats.Succeeded, &run.Stats.Failed,
		&run.Stats.Saved, &run.Stats.Duplicates, &samples, &run.StartedAt, &finishedAt)
	if err != nil {
		return run, err
	}
	if finishedAt.Valid {
		run.FinishedAt = finishedAt.Time
	}
	if len(samples) > 0 {
		if err := json.Unmarshal(samples, &run.Errors); err != nil {
			return run, fmt.Errorf("decode sweep error samples: %w", err)
		}
	}
	return run, nil
}
