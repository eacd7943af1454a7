package tollscan

import (
	"context"
	"log/slog"
	"time"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

// UpsertResult classifies each record of a persisted batch.
type UpsertResult struct {
	Saved         []model.TollNotice
	Duplicates    []model.TollNotice
	SchemaMissing bool
}

// NoticeStore abstracts the reconciliation store so the engine can be
// tested without a database. Every write is scoped to owner; a natural-key
// collision is a duplicate, not an error.
type NoticeStore interface {
	UpsertBatch(ctx context.Context, notices []model.TollNotice, owner string, source model.SourceTag) (UpsertResult, error)
}

// SweepStore persists fleet sweep lifecycle records.
type SweepStore interface {
	CreateRun(ctx context.Context, run model.SweepRun) error
	UpdateRun(ctx context.Context, run model.SweepRun) error
}

// Service runs the end-to-end acquisition pipeline: coalesce, retry, drive
// the portal, parse, reconcile. Work inside one attempt is sequential; the
// portal session handles one navigation at a time.
type Service struct {
	driver    PortalDriver
	parser    ResultParser
	store     NoticeStore
	sweeps    SweepStore
	coalescer *Coalescer
	jobs      *JobManager
	policy    RetryPolicy
	// overall bounds one whole retried sequence, not a single attempt, so
	// a caller-facing budget holds across retries.
	overall      time.Duration
	sweepWorkers int
	audit        AuditLogger
	logger       *slog.Logger
}

func NewService(driver PortalDriver, parser ResultParser, store NoticeStore, sweeps SweepStore, coalescer *Coalescer, policy RetryPolicy, overallTimeout time.Duration, sweepWorkers int, audit AuditLogger, logger *slog.Logger) *Service {
	if coalescer == nil {
		coalescer = NewCoalescer()
	}
	if policy.MaxAttempts < 1 {
		policy = DefaultRetryPolicy
	}
	if overallTimeout <= 0 {
		overallTimeout = 90 * time.Second
	}
	if sweepWorkers <= 0 {
		sweepWorkers = 3
	}
	if audit == nil {
		audit = NopAudit{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		driver:       driver,
		parser:       parser,
		store:        store,
		sweeps:       sweeps,
		coalescer:    coalescer,
		jobs:         NewJobManager(),
		policy:       policy,
		overall:      overallTimeout,
		sweepWorkers: sweepWorkers,
		audit:        audit,
		logger:       logger,
	}
}

// searchKey scopes the coalescing identity to the tenant: notices are
// isolated per owner, so two tenants probing the same plate must not share
// a save outcome.
func searchKey(owner string, query model.SearchQuery) string {
	return owner + "|" + query.Key()
}

// Search acquires toll notices for one vehicle. Input is rejected before
// any portal interaction; concurrent calls for the same key share one
// in-flight acquisition. The owner always comes from the authenticated
// identity, never from request payload.
func (s *Service) Search(ctx context.Context, owner, plate string, jurisdiction model.Jurisdiction, noticeNumber string, twoWheeler bool) (*model.AcquisitionResult, error) {
	query, err := NewSearchQuery(plate, jurisdiction, noticeNumber, twoWheeler)
	if err != nil {
		s.audit.SearchRejected(ctx, owner, err.Error())
		return nil, err
	}
	s.audit.SearchAttempted(ctx, owner, query)

	result, err := s.coalescer.GetOrStart(ctx, searchKey(owner, query), func() (*model.AcquisitionResult, error) {
		// Detached from the initiating caller: if it disconnects, the
		// flight still completes for any other waiter, and the browser
		// session is never killed mid-navigation. The overall budget
		// still bounds total latency across all retries.
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.overall)
		defer cancel()
		return s.acquire(runCtx, owner, query)
	})
	if err != nil {
		if !IsInputError(err) {
			s.audit.SearchFailed(ctx, owner, query, err)
		}
		return nil, err
	}
	s.audit.SearchCompleted(ctx, owner, query, result.Outcome)
	return result, nil
}

// acquire runs one coalesced acquisition: retried drive+parse, then the
// reconciliation upsert. Persistence trouble never discards acquired data.
func (s *Service) acquire(ctx context.Context, owner string, query model.SearchQuery) (*model.AcquisitionResult, error) {
	type parsed struct {
		notices []model.TollNotice
		totals  model.Totals
	}

	p, err := WithRetry(ctx, s.policy, newRetryClassifier(), func(ctx context.Context) (parsed, error) {
		raw, err := s.driver.Acquire(ctx, query)
		if err != nil {
			return parsed{}, err
		}
		notices, totals, err := s.parser.Parse(raw, query)
		if err != nil {
			return parsed{}, err
		}
		return parsed{notices: notices, totals: totals}, nil
	})
	if err != nil {
		return nil, err
	}

	result := &model.AcquisitionResult{
		Notices: make([]model.TollNotice, 0, len(p.notices)),
		Totals:  p.totals,
	}
	result.Notices = append(result.Notices, p.notices...)
	if len(p.notices) == 0 {
		return result, nil
	}

	up, err := s.store.UpsertBatch(ctx, p.notices, owner, model.SourceAutoSearch)
	if err != nil {
		// Row-level trouble is already folded into the result inside the
		// store; an error here means persistence as a whole is unhealthy.
		// The scraped records still go back to the caller.
		s.logger.Error("toll notice batch not persisted", "owner", owner, "plate", query.Plate, "err", err)
		return result, nil
	}
	result.Outcome = model.SaveOutcome{
		Saved:         len(up.Saved),
		Duplicates:    len(up.Duplicates),
		SchemaMissing: up.SchemaMissing,
	}
	return result, nil
}

// InvalidateSearch drops the cached acquisition for one vehicle so the
// next read reflects a notice mutation instead of the stale snapshot.
func (s *Service) InvalidateSearch(owner, plate string, jurisdiction model.Jurisdiction) {
	query, err := NewSearchQuery(plate, jurisdiction, "", false)
	if err != nil {
		return
	}
	s.coalescer.Invalidate(searchKey(owner, query))
}

// ClearCache is the administrative eviction of the read cache.
func (s *Service) ClearCache() int {
	return s.coalescer.Clear()
}
