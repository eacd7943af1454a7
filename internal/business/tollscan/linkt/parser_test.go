package linkt

import (
	"errors"
	"os"
	"testing"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
)

func sampleQuery() model.SearchQuery {
	return model.SearchQuery{Plate: "ABC123", Jurisdiction: model.JurisdictionNSW}
}

func TestParseNoticeTable(t *testing.T) {
	sample, err := os.ReadFile("testdata/sample_results.html")
	if err != nil {
		t.Fatalf("read sample html: %v", err)
	}

	notices, totals, err := NewParser().Parse(tollscan.RawPortalResult{TableHTML: string(sample)}, sampleQuery())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	// The banner row has too few cells and must be dropped, not fail the batch.
	if len(notices) != 3 {
		t.Fatalf("expected 3 notices, got %d", len(notices))
	}

	first := notices[0]
	if first.Plate != "ABC123" || first.Jurisdiction != model.JurisdictionNSW {
		t.Errorf("query fields not propagated: %+v", first)
	}
	if first.Motorway != "M2" || first.IssuedDate != "2024-01-10" {
		t.Errorf("first row = %+v", first)
	}
	if first.NoticeNumber != "TN-448291" {
		t.Errorf("notice number = %q", first.NoticeNumber)
	}
	if first.AdminFee != 12.00 || first.TollAmount != 8.50 {
		t.Errorf("amounts = %v / %v", first.AdminFee, first.TollAmount)
	}
	// The displayed total column says 99.99; the recomputed sum wins.
	if first.TotalAmount != 20.50 {
		t.Errorf("total = %v, want 20.50", first.TotalAmount)
	}
	if first.IsPaid {
		t.Error("acquired notices must start unpaid")
	}
	if first.VehicleType != model.VehicleCar || first.Source != model.SourceAutoSearch {
		t.Errorf("classification = %v / %v", first.VehicleType, first.Source)
	}

	// Missing due date falls back to the issued date.
	if notices[1].DueDate != "14/01/2024" {
		t.Errorf("due date fallback = %q", notices[1].DueDate)
	}
	// Mixed currency decorations are stripped before conversion.
	if notices[1].AdminFee != 11.30 || notices[1].TollAmount != 6.75 {
		t.Errorf("second row amounts = %v / %v", notices[1].AdminFee, notices[1].TollAmount)
	}
	// An unparseable cell yields zero, never an error.
	if notices[2].AdminFee != 0 || notices[2].TotalAmount != 5.20 {
		t.Errorf("third row = %v / %v", notices[2].AdminFee, notices[2].TotalAmount)
	}

	if totals.AdminFee != 23.30 || totals.TollAmount != 20.45 || totals.Payable != 43.75 {
		t.Errorf("totals = %+v", totals)
	}
}

func TestParseEmptyMarker(t *testing.T) {
	notices, totals, err := NewParser().Parse(tollscan.RawPortalResult{Empty: true}, sampleQuery())
	if err != nil {
		t.Fatalf("Parse empty: %v", err)
	}
	if len(notices) != 0 {
		t.Errorf("expected no notices, got %d", len(notices))
	}
	if totals != (model.Totals{}) {
		t.Errorf("totals = %+v, want zero", totals)
	}
}

func TestParseUnexpectedShape(t *testing.T) {
	cases := map[string]string{
		"no rows":    `<table class="notice-results"><tbody></tbody></table>`,
		"short rows": `<table class="notice-results"><tbody><tr><td>M2</td><td>2024-01-10</td></tr></tbody></table>`,
	}
	for name, html := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := NewParser().Parse(tollscan.RawPortalResult{TableHTML: html}, sampleQuery())
			var pe *tollscan.PortalError
			if !errors.As(err, &pe) || pe.Kind != tollscan.PortalStructureChanged {
				t.Fatalf("expected structure error, got %v", err)
			}
		})
	}
}

func TestParseCurrency(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$12.00", 12.00},
		{"$A 11.30", 11.30},
		{"6.75 AUD", 6.75},
		{"n/a", 0},
		{"", 0},
		{"...", 0},
	}
	for _, tc := range cases {
		if got := parseCurrency(tc.in); got != tc.want {
			t.Errorf("parseCurrency(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestPortalLabel(t *testing.T) {
	if label, ok := PortalLabel(model.JurisdictionNSW); !ok || label != "New South Wales" {
		t.Errorf("NSW label = %q, %v", label, ok)
	}
	if _, ok := PortalLabel(model.Jurisdiction("ACT")); ok {
		t.Error("unknown jurisdiction must not map to a portal label")
	}
}
