package tollscan

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

// maxSweepErrorSamples caps how many per-vehicle failures a sweep run
// records; beyond that only the counters move.
const maxSweepErrorSamples = 10

// JobManager tracks cancel functions for running sweeps so they can be
// aborted externally by id.
type JobManager struct {
	mu      sync.RWMutex
	cancels map[string]context.CancelFunc
}

func NewJobManager() *JobManager {
	return &JobManager{cancels: make(map[string]context.CancelFunc)}
}

func (jm *JobManager) Register(sweepID string, cancel context.CancelFunc) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	jm.cancels[sweepID] = cancel
}

// Cancel aborts a sweep if it is still running. Returns whether the sweep
// was found.
func (jm *JobManager) Cancel(sweepID string) bool {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	if cancel, ok := jm.cancels[sweepID]; ok {
		cancel()
		delete(jm.cancels, sweepID)
		return true
	}
	return false
}

func (jm *JobManager) Unregister(sweepID string) {
	jm.mu.Lock()
	defer jm.mu.Unlock()
	delete(jm.cancels, sweepID)
}

func (jm *JobManager) IsRunning(sweepID string) bool {
	jm.mu.RLock()
	defer jm.mu.RUnlock()
	_, ok := jm.cancels[sweepID]
	return ok
}

// StartSweep kicks off a fleet-wide acquisition asynchronously: one
// coalesced search per vehicle, processed by a bounded worker pool.
// Individual vehicle failures are counted, never fatal to the sweep.
func (s *Service) StartSweep(ctx context.Context, owner string, vehicles []model.SweepVehicle) (string, error) {
	if len(vehicles) == 0 {
		return "", &InputError{Field: "plates", Reason: "at least one vehicle is required"}
	}

	queries := make([]model.SearchQuery, 0, len(vehicles))
	for _, v := range vehicles {
		q, err := NewSearchQuery(v.Plate, v.Jurisdiction, "", v.TwoWheeler)
		if err != nil {
			s.audit.SearchRejected(ctx, owner, err.Error())
			return "", err
		}
		queries = append(queries, q)
	}

	sweepID := "SWEEP_" + uuid.NewString()
	run := model.SweepRun{
		SweepID:     sweepID,
		OwnerUserID: owner,
		Status:      model.SweepStatusRunning,
		Stats:       model.SweepRunStats{Requested: len(queries)},
		StartedAt:   time.Now().UTC(),
	}
	if err := s.sweeps.CreateRun(ctx, run); err != nil {
		return "", err
	}

	sweepCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.jobs.Register(sweepID, cancel)
	go s.runSweep(sweepCtx, owner, run, queries)
	return sweepID, nil
}

// CancelSweep aborts a running sweep. Returns false when the id is unknown
// or already finished.
func (s *Service) CancelSweep(sweepID string) bool {
	return s.jobs.Cancel(sweepID)
}

func (s *Service) runSweep(ctx context.Context, owner string, run model.SweepRun, queries []model.SearchQuery) {
	defer s.jobs.Unregister(run.SweepID)

	var (
		mu      sync.Mutex
		stats   = run.Stats
		samples []model.ErrorSample
	)

	jobs := make(chan model.SearchQuery)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for q := range jobs {
			select {
			case <-ctx.Done():
				return
			default:
			}
			result, err := s.Search(ctx, owner, q.Plate, q.Jurisdiction, "", q.TwoWheeler)

			mu.Lock()
			if err != nil {
				stats.Failed++
				if len(samples) < maxSweepErrorSamples {
					samples = append(samples, model.ErrorSample{Plate: q.Plate, Reason: err.Error()})
				}
			} else {
				stats.Succeeded++
				stats.Saved += result.Outcome.Saved
				stats.Duplicates += result.Outcome.Duplicates
			}
			current := model.SweepRun{
				SweepID:     run.SweepID,
				OwnerUserID: owner,
				Status:      model.SweepStatusRunning,
				Stats:       stats,
				Errors:      samples,
				StartedAt:   run.StartedAt,
			}
			mu.Unlock()
			_ = s.sweeps.UpdateRun(ctx, current)
		}
	}

	workers := s.sweepWorkers
	if workers > len(queries) {
		workers = len(queries)
	}
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker()
	}

	canceled := false
feed:
	for _, q := range queries {
		select {
		case jobs <- q:
		case <-ctx.Done():
			canceled = true
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	status := model.SweepStatusSuccess
	switch {
	case canceled:
		status = model.SweepStatusCanceled
	case stats.Succeeded == 0 && stats.Failed > 0:
		status = model.SweepStatusFailed
	case stats.Failed > 0:
		status = model.SweepStatusPartial
	}

	final := model.SweepRun{
		SweepID:     run.SweepID,
		OwnerUserID: owner,
		Status:      status,
		Stats:       stats,
		Errors:      samples,
		StartedAt:   run.StartedAt,
		FinishedAt:  time.Now().UTC(),
	}
	// Persist the terminal state on a fresh context; the sweep ctx may
	// already be canceled.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := s.sweeps.UpdateRun(finishCtx, final); err != nil {
		s.logger.Error("sweep final state not persisted", "sweepId", run.SweepID, "err", err)
	}
}
