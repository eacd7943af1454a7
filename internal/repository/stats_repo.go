package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
)

// StatsRepository computes the dashboard summary for one tenant. It
// prefers the toll_notice_summary SQL function; when that is not installed
// it falls back to reducing the raw record set in Go. The overdue
// predicate is identical on both paths (due_at before today, unpaid).
type StatsRepository struct {
	db      *sql.DB
	notices *NoticeRepository
	logger  *slog.Logger
}

func NewStatsRepository(db *sql.DB, notices *NoticeRepository, logger *slog.Logger) *StatsRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &StatsRepository{db: db, notices: notices, logger: logger}
}

const summarySQL = `SELECT total_notices, total_amount, paid_count, unpaid_count,
	unpaid_amount, overdue_count, overdue_amount
FROM toll_notice_summary($1)`

// Summary returns counts, totals and overdue figures for owner.
func (r *StatsRepository) Summary(ctx context.Context, owner string) (model.Statistics, error) {
	var stats model.Statistics
	err := r.db.QueryRowContext(ctx, summarySQL, owner).Scan(
		&stats.TotalNotices, &stats.TotalAmount, &stats.PaidCount, &stats.UnpaidCount,
		&stats.UnpaidAmount, &stats.OverdueCount, &stats.OverdueAmount,
	)
	if err == nil {
		return stats, nil
	}
	if !isUndefinedFunction(err) {
		return stats, fmt.Errorf("toll notice summary: %w", err)
	}

	// Supporting function not installed on this environment; compute the
	// same shape from the rows instead.
	r.logger.Debug("toll_notice_summary unavailable, using fallback reduction", "err", err)
	notices, err := r.notices.List(ctx, owner, NoticeQuery{})
	if err != nil {
		return stats, fmt.Errorf("summary fallback: %w", err)
	}
	return tollscan.Summarize(notices, time.Now().UTC()), nil
}
