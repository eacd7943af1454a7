package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
	"github.com/fleetpilot/fleet-api/pkg/util"
)

// Postgres conditions the store distinguishes by SQLSTATE.
const (
	pgUndefinedTable    = "42P01"
	pgUndefinedFunction = "42883"
)

// ErrInvalidSortKey rejects sort fields outside the allow-list. Arbitrary
// keys are an error, not silently ignored, to keep query behavior
// unambiguous.
var ErrInvalidSortKey = errors.New("unsupported sort key")

// ErrNoticeNotFound marks a mutation that matched no row for the tenant.
var ErrNoticeNotFound = errors.New("toll notice not found")

// sortColumns is the fixed allow-list for List ordering.
var sortColumns = map[string]string{
	"issued_date":  "issued_date",
	"due_date":     "due_at",
	"total_amount": "total_amount",
	"plate":        "plate",
	"created_at":   "created_at",
}

// sortColumn resolves a requested sort key against the allow-list. Empty
// means the insertion-order default.
func sortColumn(key string) (string, error) {
	if key == "" {
		return "created_at", nil
	}
	col, ok := sortColumns[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrInvalidSortKey, key)
	}
	return col, nil
}

// NoticeQuery filters a tenant's persisted notices.
type NoticeQuery struct {
	Jurisdiction model.Jurisdiction
	Plate        string
	Paid         *bool
	SortBy       string // key into the allow-list; empty means created_at
	SortDesc     bool
	Limit        int
}

// NoticeRepository is the reconciliation store: idempotent natural-key
// upserts and tenant-scoped reads over toll_notices.
type NoticeRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tollscan.NoticeStore = (*NoticeRepository)(nil)

func NewNoticeRepository(db *sql.DB, logger *slog.Logger) *NoticeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoticeRepository{db: db, logger: logger}
}

// rowOutcome classifies the result of one natural-key insert.
type rowOutcome int

const (
	rowSaved rowOutcome = iota
	rowDuplicate
	rowSchemaMissing
	rowSkipped
)

// classifyRow maps a per-row insert error onto the reconciliation
// contract: no row back from ON CONFLICT DO NOTHING means the natural key
// already exists for this tenant, an absent destination table means an
// unmigrated environment, and anything else is a row-local failure to
// skip, not abort on.
func classifyRow(err error) rowOutcome {
	switch {
	case err == nil:
		return rowSaved
	case errors.Is(err, sql.ErrNoRows):
		return rowDuplicate
	case isUndefinedTable(err):
		return rowSchemaMissing
	default:
		return rowSkipped
	}
}

const insertNoticeSQL = `
INSERT INTO toll_notices (
	plate, jurisdiction, notice_number, motorway, issued_date, due_date,
	due_at, trip_status, admin_fee, toll_amount, total_amount, is_paid,
	vehicle_type, source, owner_user_id
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
ON CONFLICT (plate, motorway, issued_date, toll_amount, admin_fee, owner_user_id)
DO NOTHING
RETURNING id, created_at`

// UpsertBatch inserts each record individually so one conflicting row
// cannot abort the batch. A natural-key conflict is classified as a
// duplicate; an absent destination table stops the batch and reports
// SchemaMissing so the caller can still hand the acquired records back;
// any other row error is logged and the row skipped.
func (r *NoticeRepository) UpsertBatch(ctx context.Context, notices []model.TollNotice, owner string, source model.SourceTag) (tollscan.UpsertResult, error) {
	var result tollscan.UpsertResult

	for _, n := range notices {
		n.OwnerUserID = owner
		n.Source = source
		var dueAt *time.Time
		if parsed, ok := util.ParseLooseDate(n.DueDate); ok {
			dueAt = &parsed
		}
		n.DueAt = dueAt

		err := r.db.QueryRowContext(ctx, insertNoticeSQL,
			n.Plate, n.Jurisdiction, n.NoticeNumber, n.Motorway, n.IssuedDate, n.DueDate,
			dueAt, n.TripStatus, n.AdminFee, n.TollAmount, n.TotalAmount, n.IsPaid,
			n.VehicleType, n.Source, n.OwnerUserID,
		).Scan(&n.ID, &n.CreatedAt)

		switch classifyRow(err) {
		case rowSaved:
			result.Saved = append(result.Saved, n)
		case rowDuplicate:
			// Expected on repeat searches.
			result.Duplicates = append(result.Duplicates, n)
		case rowSchemaMissing:
			// Fresh or unmigrated environment. Stop here; what was
			// classified so far still goes back.
			result.SchemaMissing = true
			return result, nil
		case rowSkipped:
			r.logger.Warn("toll notice row not persisted",
				"plate", n.Plate, "motorway", n.Motorway, "err", err)
		}
	}
	return result, nil
}

// List returns a tenant's notices under the fixed sort allow-list.
func (r *NoticeRepository) List(ctx context.Context, owner string, q NoticeQuery) ([]model.TollNotice, error) {
	orderBy, err := sortColumn(q.SortBy)
	if err != nil {
		return nil, err
	}
	direction := "ASC"
	if q.SortDesc {
		direction = "DESC"
	}

	var sb strings.Builder
	sb.WriteString(`SELECT id, plate, jurisdiction, notice_number, motorway, issued_date, due_date,
		due_at, trip_status, admin_fee, toll_amount, total_amount, is_paid,
		vehicle_type, source, owner_user_id, created_at
	FROM toll_notices WHERE owner_user_id = $1`)
	args := []any{owner}

	if q.Jurisdiction != "" {
		args = append(args, q.Jurisdiction)
		fmt.Fprintf(&sb, " AND jurisdiction = $%d", len(args))
	}
	if q.Plate != "" {
		args = append(args, util.NormalizePlate(q.Plate))
		fmt.Fprintf(&sb, " AND plate = $%d", len(args))
	}
	if q.Paid != nil {
		args = append(args, *q.Paid)
		fmt.Fprintf(&sb, " AND is_paid = $%d", len(args))
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s", orderBy, direction)
	if q.Limit > 0 {
		args = append(args, q.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list toll notices: %w", err)
	}
	defer rows.Close()

	var notices []model.TollNotice
	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return nil, err
		}
		notices = append(notices, n)
	}
	return notices, rows.Err()
}

// StreamAll feeds every notice of a tenant to fn, oldest first. Used by
// the CSV export so the whole set never materializes in one response
// buffer.
func (r *NoticeRepository) StreamAll(ctx context.Context, owner string, fn func(model.TollNotice) error) error {
	rows, err := r.db.QueryContext(ctx, `SELECT id, plate, jurisdiction, notice_number, motorway, issued_date, due_date,
		due_at, trip_status, admin_fee, toll_amount, total_amount, is_paid,
		vehicle_type, source, owner_user_id, created_at
	FROM toll_notices WHERE owner_user_id = $1 ORDER BY created_at`, owner)
	if err != nil {
		return fmt.Errorf("stream toll notices: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		n, err := scanNotice(rows)
		if err != nil {
			return err
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	return rows.Err()
}

// MarkPaid flips the paid flag on a single notice and reports which
// vehicle it belonged to, so the caller can evict any cached acquisition
// for that plate. The only mutation the engine performs on persisted
// notices.
func (r *NoticeRepository) MarkPaid(ctx context.Context, owner string, id int64) (model.TollNotice, error) {
	n := model.TollNotice{ID: id, IsPaid: true, OwnerUserID: owner}
	err := r.db.QueryRowContext(ctx,
		`UPDATE toll_notices SET is_paid = TRUE WHERE id = $1 AND owner_user_id = $2
		RETURNING plate, jurisdiction`, id, owner).Scan(&n.Plate, &n.Jurisdiction)
	if errors.Is(err, sql.ErrNoRows) {
		return n, ErrNoticeNotFound
	}
	if err != nil {
		return n, fmt.Errorf("mark notice %d paid: %w", id, err)
	}
	return n, nil
}

func scanNotice(rows *sql.Rows) (model.TollNotice, error) {
	var (
		n     model.TollNotice
		dueAt sql.NullTime
	)
	err := rows.Scan(&n.ID, &n.Plate, &n.Jurisdiction, &n.NoticeNumber, &n.Motorway,
		&n.IssuedDate, &n.DueDate, &dueAt, &n.TripStatus, &n.AdminFee, &n.TollAmount,
		&n.TotalAmount, &n.IsPaid, &n.VehicleType, &n.Source, &n.OwnerUserID, &n.CreatedAt)
	if err != nil {
		return n, fmt.Errorf("scan toll notice: %w", err)
	}
	if dueAt.Valid {
		t := dueAt.Time
		n.DueAt = &t
	}
	return n, nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUndefinedTable
}

func isUndefinedFunction(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == pgUndefinedFunction || pgErr.Code == pgUndefinedTable)
}
