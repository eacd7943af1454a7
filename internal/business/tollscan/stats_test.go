package tollscan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestOverdue(t *testing.T) {
	t.Parallel()

	today := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	cases := []struct {
		name   string
		notice model.TollNotice
		want   bool
	}{
		{"unpaid past due", model.TollNotice{DueAt: datePtr(2024, 3, 1)}, true},
		{"unpaid due today", model.TollNotice{DueAt: datePtr(2024, 3, 15)}, false},
		{"unpaid due later", model.TollNotice{DueAt: datePtr(2024, 4, 1)}, false},
		{"paid past due", model.TollNotice{IsPaid: true, DueAt: datePtr(2024, 3, 1)}, false},
		{"no recognizable due date", model.TollNotice{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Overdue(tc.notice, today))
		})
	}
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)
	notices := []model.TollNotice{
		{TotalAmount: 20.50, IsPaid: true, DueAt: datePtr(2024, 1, 1)},
		{TotalAmount: 14.35, DueAt: datePtr(2024, 2, 1)},
		{TotalAmount: 9.10, DueAt: datePtr(2024, 4, 1)},
		{TotalAmount: 5.05},
	}

	stats := Summarize(notices, now)

	require.Equal(t, 4, stats.TotalNotices)
	require.Equal(t, 49.00, stats.TotalAmount)
	require.Equal(t, 1, stats.PaidCount)
	require.Equal(t, 3, stats.UnpaidCount)
	require.Equal(t, 28.50, stats.UnpaidAmount)
	require.Equal(t, 1, stats.OverdueCount)
	require.Equal(t, 14.35, stats.OverdueAmount)
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	require.Equal(t, model.Statistics{}, Summarize(nil, time.Now().UTC()))
}
