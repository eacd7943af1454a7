package tollscan

import (
	"context"

	"github.com/fleetpilot/fleet-api/pkg/model"
)

// RawPortalResult is what one successful portal interaction yields: either
// the raw markup of the results table, or an explicit empty-result marker.
// FinalURL is kept for diagnostics only; nothing downstream of the parser
// ever sees raw markup.
type RawPortalResult struct {
	TableHTML string
	Empty     bool
	FinalURL  string
}

// PortalDriver owns one automated-browser session per Acquire call and
// knows how to work the toll authority's search form. Implementations must
// release every browser resource before returning, on success and failure
// alike. Tests substitute a fake driver; the real one lives in the linkt
// subpackage.
type PortalDriver interface {
	Acquire(ctx context.Context, query model.SearchQuery) (RawPortalResult, error)
}

// ResultParser normalizes a raw portal result into toll notices plus
// aggregate totals, computed in the same pass. An empty-result marker
// parses to an empty sequence, not an error.
type ResultParser interface {
	Parse(raw RawPortalResult, query model.SearchQuery) ([]model.TollNotice, model.Totals, error)
}
