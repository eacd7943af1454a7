package tollscan

import (
	"time"

	"github.com/fleetpilot/fleet-api/pkg/model"
	"github.com/fleetpilot/fleet-api/pkg/util"
)

// Overdue reports whether a notice is unpaid past its due date. This is
// the single overdue predicate; the SQL aggregate mirrors it exactly
// (NOT is_paid AND due_at < CURRENT_DATE) so the precomputed and fallback
// statistics paths can never disagree on classification.
func Overdue(n model.TollNotice, today time.Time) bool {
	if n.IsPaid || n.DueAt == nil {
		return false
	}
	return n.DueAt.Before(today)
}

// Summarize reduces a record set into dashboard statistics. Used as the
// fallback when the server-side aggregate is unavailable.
func Summarize(notices []model.TollNotice, now time.Time) model.Statistics {
	today := now.Truncate(24 * time.Hour)

	var stats model.Statistics
	for _, n := range notices {
		stats.TotalNotices++
		stats.TotalAmount = util.RoundCents(stats.TotalAmount + n.TotalAmount)
		if n.IsPaid {
			stats.PaidCount++
			continue
		}
		stats.UnpaidCount++
		stats.UnpaidAmount = util.RoundCents(stats.UnpaidAmount + n.TotalAmount)
		if Overdue(n, today) {
			stats.OverdueCount++
			stats.OverdueAmount = util.RoundCents(stats.OverdueAmount + n.TotalAmount)
		}
	}
	return stats
}
