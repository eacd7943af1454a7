package tollscan

import (
	"github.com/fleetpilot/fleet-api/pkg/model"
	"github.com/fleetpilot/fleet-api/pkg/util"
)

// NewSearchQuery validates and normalizes raw request input into an
// immutable SearchQuery. All input rejection happens here, before any
// browser work is scheduled.
func NewSearchQuery(plate string, jurisdiction model.Jurisdiction, noticeNumber string, twoWheeler bool) (model.SearchQuery, error) {
	normalized := util.NormalizePlate(plate)
	if normalized == "" {
		return model.SearchQuery{}, &InputError{Field: "plate", Reason: "must contain at least one letter or digit"}
	}
	if len(normalized) > 9 {
		return model.SearchQuery{}, &InputError{Field: "plate", Reason: "too long for any supported jurisdiction"}
	}
	if !jurisdiction.Valid() {
		return model.SearchQuery{}, &InputError{Field: "jurisdiction", Reason: "unknown issuing region " + string(jurisdiction)}
	}
	return model.SearchQuery{
		Plate:            normalized,
		Jurisdiction:     jurisdiction,
		NoticeNumberHint: noticeNumber,
		TwoWheeler:       twoWheeler,
	}, nil
}
