package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestListRejectsUnknownSortKey(t *testing.T) {
	// The allow-list check runs before any statement is built, so no
	// database is needed to observe the rejection.
	repo := NewNoticeRepository(nil, nil)

	_, err := repo.List(context.Background(), "tenant-1", NoticeQuery{SortBy: "owner_user_id; DROP TABLE toll_notices"})
	if !errors.Is(err, ErrInvalidSortKey) {
		t.Fatalf("err = %v, want ErrInvalidSortKey", err)
	}
}

func TestSortColumnAllowList(t *testing.T) {
	accepted := map[string]string{
		"":             "created_at",
		"issued_date":  "issued_date",
		"due_date":     "due_at",
		"total_amount": "total_amount",
		"plate":        "plate",
		"created_at":   "created_at",
	}
	for key, want := range accepted {
		got, err := sortColumn(key)
		if err != nil {
			t.Errorf("sortColumn(%q) error: %v", key, err)
			continue
		}
		if got != want {
			t.Errorf("sortColumn(%q) = %q, want %q", key, got, want)
		}
	}

	for _, key := range []string{"owner_user_id", "id", "dueDate", "due_at"} {
		if _, err := sortColumn(key); !errors.Is(err, ErrInvalidSortKey) {
			t.Errorf("sortColumn(%q) err = %v, want ErrInvalidSortKey", key, err)
		}
	}
}

func TestClassifyRow(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want rowOutcome
	}{
		{"inserted", nil, rowSaved},
		{"conflict returns no row", sql.ErrNoRows, rowDuplicate},
		{"wrapped no row", fmt.Errorf("scan: %w", sql.ErrNoRows), rowDuplicate},
		{"undefined table", &pgconn.PgError{Code: "42P01"}, rowSchemaMissing},
		{"wrapped undefined table", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "42P01"}), rowSchemaMissing},
		{"constraint violation", &pgconn.PgError{Code: "23514"}, rowSkipped},
		{"connection failure", errors.New("broken pipe"), rowSkipped},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := classifyRow(tc.err); got != tc.want {
				t.Errorf("classifyRow(%v) = %d, want %d", tc.err, got, tc.want)
			}
		})
	}
}
