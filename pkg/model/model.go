package model

import "time"

// Jurisdiction identifies the issuing region of a toll notice.
type Jurisdiction string

const (
	JurisdictionNSW Jurisdiction = "NSW"
	JurisdictionVIC Jurisdiction = "VIC"
	JurisdictionQLD Jurisdiction = "QLD"
)

// Jurisdictions lists every region the portal search supports.
var Jurisdictions = []Jurisdiction{JurisdictionNSW, JurisdictionVIC, JurisdictionQLD}

// Valid reports whether j is a supported issuing region.
func (j Jurisdiction) Valid() bool {
	for _, known := range Jurisdictions {
		if j == known {
			return true
		}
	}
	return false
}

// VehicleType distinguishes car and motorcycle notices.
type VehicleType string

const (
	VehicleCar        VehicleType = "car"
	VehicleMotorcycle VehicleType = "motorcycle"
)

// SourceTag records how a notice entered the system.
type SourceTag string

const (
	SourceManual       SourceTag = "manual"
	SourceAutoSearch   SourceTag = "automated_search"
	SourceRentalLinked SourceTag = "rental_linked"
)

// SearchQuery describes one portal search. Built once per request via
// tollscan.NewSearchQuery; the plate is already normalized by then.
type SearchQuery struct {
	Plate            string       `json:"plate"`
	Jurisdiction     Jurisdiction `json:"jurisdiction"`
	NoticeNumberHint string       `json:"noticeNumber,omitempty"`
	TwoWheeler       bool         `json:"twoWheeler,omitempty"`
}

// Key is the coalescing identity: one in-flight acquisition per value.
func (q SearchQuery) Key() string {
	return q.Plate + "|" + string(q.Jurisdiction)
}

// TollNotice is the core persisted entity. The portal provides no stable
// notice identifier for many rows, so dedup runs on the natural key
// (plate, motorway, issuedDate, tollAmount, adminFee, ownerUserId).
type TollNotice struct {
	ID           int64        `json:"id,omitempty"`
	Plate        string       `json:"plate"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	NoticeNumber string       `json:"noticeNumber,omitempty"`
	Motorway     string       `json:"motorway"`
	IssuedDate   string       `json:"issuedDate"`
	DueDate      string       `json:"dueDate"`
	// DueAt is the loose DueDate parsed at persistence time; nil when the
	// portal string is not recognizable as a date. Both statistics paths
	// compute "overdue" from this value so they can never disagree.
	DueAt       *time.Time  `json:"dueAt,omitempty"`
	TripStatus  string      `json:"tripStatus,omitempty"`
	AdminFee    float64     `json:"adminFee"`
	TollAmount  float64     `json:"tollAmount"`
	TotalAmount float64     `json:"totalAmount"`
	IsPaid      bool        `json:"isPaid"`
	VehicleType VehicleType `json:"vehicleType"`
	Source      SourceTag   `json:"source"`
	OwnerUserID string      `json:"-"`
	CreatedAt   time.Time   `json:"createdAt,omitempty"`
}

// Totals aggregates the financial columns of one acquisition.
type Totals struct {
	AdminFee   float64 `json:"adminFee"`
	TollAmount float64 `json:"tollAmount"`
	Payable    float64 `json:"payable"`
}

// SaveOutcome reports what the reconciliation store did with a batch.
// SchemaMissing means the destination table does not exist yet; the
// acquired records are still returned to the caller.
type SaveOutcome struct {
	Saved         int  `json:"saved"`
	Duplicates    int  `json:"duplicates"`
	SchemaMissing bool `json:"schemaMissing"`
}

// AcquisitionResult is what every waiter on a coalesced search receives.
// Immutable once constructed.
type AcquisitionResult struct {
	Notices []TollNotice `json:"notices"`
	Totals  Totals       `json:"totals"`
	Outcome SaveOutcome  `json:"saveOutcome"`
}

// Statistics is the dashboard-facing summary for one tenant.
type Statistics struct {
	TotalNotices  int     `json:"totalNotices"`
	TotalAmount   float64 `json:"totalAmount"`
	PaidCount     int     `json:"paidCount"`
	UnpaidCount   int     `json:"unpaidCount"`
	UnpaidAmount  float64 `json:"unpaidAmount"`
	OverdueCount  int     `json:"overdueCount"`
	OverdueAmount float64 `json:"overdueAmount"`
}

// SweepVehicle is one fleet entry in a sweep request.
type SweepVehicle struct {
	Plate        string       `json:"plate"`
	Jurisdiction Jurisdiction `json:"jurisdiction"`
	TwoWheeler   bool         `json:"twoWheeler,omitempty"`
}

// SweepRunStats stores aggregated counters for a fleet sweep.
type SweepRunStats struct {
	Requested  int `json:"requested"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Saved      int `json:"saved"`
	Duplicates int `json:"duplicates"`
}

// ErrorSample captures a subset of sweep errors for observability without
// heavy logging.
type ErrorSample struct {
	Plate  string `json:"plate,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// SweepRun tracks the lifecycle of one fleet-wide acquisition.
type SweepRun struct {
	SweepID     string        `json:"sweepId"`
	OwnerUserID string        `json:"-"`
	Status      string        `json:"status"`
	Stats       SweepRunStats `json:"stats"`
	Errors      []ErrorSample `json:"errorsSample,omitempty"`
	StartedAt   time.Time     `json:"startedAt"`
	FinishedAt  time.Time     `json:"finishedAt,omitempty"`
}

// Sweep run statuses.
const (
	SweepStatusRunning  = "running"
	SweepStatusSuccess  = "success"
	SweepStatusPartial  = "partial"
	SweepStatusFailed   = "failed"
	SweepStatusCanceled = "canceled"
)
