package linkt

import "github.com/fleetpilot/fleet-api/pkg/model"

// BaseURL is the toll authority portal root. Overridable in Config for
// staging mirrors.
const BaseURL = "https://www.linkt.com.au"

// SearchPath is the toll notice search entry point.
const SearchPath = "/tolling/toll-notice/search"

// jurisdictionLabels maps our jurisdiction enum onto the portal's own
// label set. A fixed lookup, never inferred: the portal renders full state
// names in its issuing-state select.
var jurisdictionLabels = map[model.Jurisdiction]string{
	model.JurisdictionNSW: "New South Wales",
	model.JurisdictionVIC: "Victoria",
	model.JurisdictionQLD: "Queensland",
}

// PortalLabel returns the portal's label for a jurisdiction. The second
// return is false for regions the portal cannot search; callers reject
// those before opening a browser.
func PortalLabel(j model.Jurisdiction) (string, bool) {
	label, ok := jurisdictionLabels[j]
	return label, ok
}

// noResultsPhrases are the portal's known "nothing found" phrasings. The
// result wait treats their presence (case-insensitive) as a terminal empty
// result; matching a disjunction avoids racing one wait against another.
var noResultsPhrases = []string{
	"no toll notices were found",
	"no results found",
	"no outstanding toll notices",
	"we couldn't find any notices",
}
