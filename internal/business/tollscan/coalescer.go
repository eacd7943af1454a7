package tollscan

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

// Coalescer is the concurrency-safety boundary of the engine: at most one
// acquisition is in flight per (plate, jurisdiction) key, and everything
// above it assumes single-flight semantics. It is an explicitly constructed
// component with owned state, injected wherever it is needed.
type Coalescer struct {
	mu     sync.RWMutex
	cache  map[string]*model.AcquisitionResult
	flight singleflight.Group
}

func NewCoalescer() *Coalescer {
	return &Coalescer{cache: make(map[string]*model.AcquisitionResult)}
}

// GetOrStart returns the cached result for key, joins an in-flight
// acquisition for it, or starts a new one. Every concurrent caller for the
// same key receives the identical result.
//
// The flight itself runs to completion even if ctx is canceled; only this
// caller stops waiting. Other waiters, if any, still benefit, and a live
// browser session is never torn down mid-navigation on a whim of one
// disconnected client. The in-flight entry leaves the group when the
// function returns, success or failure, so a failed attempt cannot poison
// the key for future callers.
func (c *Coalescer) GetOrStart(ctx context.Context, key string, start func() (*model.AcquisitionResult, error)) (*model.AcquisitionResult, error) {
	if cached, ok := c.Cached(key); ok {
		return cached, nil
	}

	ch := c.flight.DoChan(key, func() (any, error) {
		result, err := start()
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.cache[key] = result
		c.mu.Unlock()
		return result, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*model.AcquisitionResult), nil
	}
}

// Cached returns a previously completed result for key, if any. Repeat
// reads (same plate, different client-side filter) hit this instead of the
// portal. Entries have no expiry; toll history for a plate changes slowly,
// and Clear is the administrative eviction.
func (c *Coalescer) Cached(key string) (*model.AcquisitionResult, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.cache[key]
	return result, ok
}

// Invalidate drops a single cached key, e.g. after a notice mutation.
func (c *Coalescer) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.cache, key)
}

// Clear empties the read cache and reports how many entries were dropped.
func (c *Coalescer) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.cache)
	c.cache = make(map[string]*model.AcquisitionResult)
	return n
}
