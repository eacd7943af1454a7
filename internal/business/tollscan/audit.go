package tollscan

import (
	"context"
	"log/slog"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

// AuditLogger receives the engine's security-relevant events so an
// external component can record and alert on repeated failures. The engine
// only emits; retention and alerting live elsewhere.
type AuditLogger interface {
	SearchAttempted(ctx context.Context, owner string, query model.SearchQuery)
	SearchRejected(ctx context.Context, owner string, reason string)
	SearchFailed(ctx context.Context, owner string, query model.SearchQuery, err error)
	SearchCompleted(ctx context.Context, owner string, query model.SearchQuery, outcome model.SaveOutcome)
}

// SlogAudit emits audit events as structured log records.
type SlogAudit struct {
	logger *slog.Logger
}

var _ AuditLogger = (*SlogAudit)(nil)

func NewSlogAudit(logger *slog.Logger) *SlogAudit {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogAudit{logger: logger}
}

func (a *SlogAudit) SearchAttempted(ctx context.Context, owner string, query model.SearchQuery) {
	a.logger.InfoContext(ctx, "toll search attempted",
		"event", "toll_search.attempted",
		"owner", owner,
		"plate", query.Plate,
		"jurisdiction", query.Jurisdiction,
	)
}

func (a *SlogAudit) SearchRejected(ctx context.Context, owner string, reason string) {
	a.logger.WarnContext(ctx, "toll search rejected",
		"event", "toll_search.rejected",
		"owner", owner,
		"reason", reason,
	)
}

func (a *SlogAudit) SearchFailed(ctx context.Context, owner string, query model.SearchQuery, err error) {
	a.logger.ErrorContext(ctx, "toll search failed after retries",
		"event", "toll_search.failed",
		"owner", owner,
		"plate", query.Plate,
		"jurisdiction", query.Jurisdiction,
		"err", err,
	)
}

func (a *SlogAudit) SearchCompleted(ctx context.Context, owner string, query model.SearchQuery, outcome model.SaveOutcome) {
	a.logger.InfoContext(ctx, "toll search completed",
		"event", "toll_search.completed",
		"owner", owner,
		"plate", query.Plate,
		"jurisdiction", query.Jurisdiction,
		"saved", outcome.Saved,
		"duplicates", outcome.Duplicates,
		"schemaMissing", outcome.SchemaMissing,
	)
}

// NopAudit discards every event. Test helper.
type NopAudit struct{}

var _ AuditLogger = NopAudit{}

func (NopAudit) SearchAttempted(context.Context, string, model.SearchQuery)                    {}
func (NopAudit) SearchRejected(context.Context, string, string)                               {}
func (NopAudit) SearchFailed(context.Context, string, model.SearchQuery, error)               {}
func (NopAudit) SearchCompleted(context.Context, string, model.SearchQuery, model.SaveOutcome) {}
