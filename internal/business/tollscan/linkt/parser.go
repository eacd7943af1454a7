package linkt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
	"github.com/fleetpilot/fleet-api/pkg/util"
)

// Fixed column positions in the portal's notice table. The markup carries
// no header metadata worth trusting, so positions are the contract.
const (
	colMotorway = iota
	colIssuedDate
	colDueDate
	colTripStatus
	colAdminFee
	colTollAmount
	minColumns = colTollAmount + 1
)

// Parser normalizes raw portal markup into toll notices. Stateless.
type Parser struct{}

var _ tollscan.ResultParser = Parser{}

func NewParser() Parser { return Parser{} }

// Parse walks the results table row by row. Rows with fewer than the
// expected column count are dropped rather than failing the batch; the
// portal's markup is not contractually stable. Aggregate totals are
// produced in the same pass.
func (Parser) Parse(raw tollscan.RawPortalResult, query model.SearchQuery) ([]model.TollNotice, model.Totals, error) {
	var totals model.Totals

	if raw.Empty {
		return nil, totals, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.TableHTML))
	if err != nil {
		return nil, totals, &tollscan.PortalError{Kind: tollscan.PortalStructureChanged, URL: raw.FinalURL, Err: fmt.Errorf("parse table markup: %w", err)}
	}

	rows := doc.Find("tbody tr")
	if rows.Length() == 0 {
		return nil, totals, &tollscan.PortalError{Kind: tollscan.PortalStructureChanged, URL: raw.FinalURL, Err: fmt.Errorf("results table has no rows")}
	}

	vehicleType := model.VehicleCar
	if query.TwoWheeler {
		vehicleType = model.VehicleMotorcycle
	}

	var notices []model.TollNotice
	rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < minColumns {
			return
		}
		cell := func(i int) string {
			return strings.TrimSpace(cells.Eq(i).Text())
		}

		adminFee := parseCurrency(cell(colAdminFee))
		tollAmount := parseCurrency(cell(colTollAmount))

		issued := cell(colIssuedDate)
		due := cell(colDueDate)
		if due == "" {
			// The portal omits due dates on some notices; the issued date
			// stands in, matching upstream behavior.
			due = issued
		}

		// Some result variants tag the row with the notice number instead
		// of rendering a column for it.
		noticeNumber, _ := row.Attr("data-notice-number")
		if noticeNumber == "" {
			noticeNumber = query.NoticeNumberHint
		}

		notices = append(notices, model.TollNotice{
			Plate:        query.Plate,
			Jurisdiction: query.Jurisdiction,
			NoticeNumber: noticeNumber,
			Motorway:     cell(colMotorway),
			IssuedDate:   issued,
			DueDate:      due,
			TripStatus:   cell(colTripStatus),
			AdminFee:     adminFee,
			TollAmount:   tollAmount,
			// The portal's own displayed total, if any, is not trusted.
			TotalAmount: util.RoundCents(adminFee + tollAmount),
			VehicleType: vehicleType,
			Source:      model.SourceAutoSearch,
		})
	})

	if len(notices) == 0 {
		return nil, totals, &tollscan.PortalError{Kind: tollscan.PortalStructureChanged, URL: raw.FinalURL, Err: fmt.Errorf("no row matched the expected %d-column shape", minColumns)}
	}

	for _, n := range notices {
		totals.AdminFee = util.RoundCents(totals.AdminFee + n.AdminFee)
		totals.TollAmount = util.RoundCents(totals.TollAmount + n.TollAmount)
		totals.Payable = util.RoundCents(totals.Payable + n.TotalAmount)
	}
	return notices, totals, nil
}

// parseCurrency strips everything but digits and the decimal point before
// conversion. A cell that still fails to parse yields 0: one malformed
// amount must never abort a batch of financial rows.
func parseCurrency(raw string) float64 {
	clean := make([]rune, 0, len(raw))
	for _, r := range raw {
		if (r >= '0' && r <= '9') || r == '.' {
			clean = append(clean, r)
		}
	}
	if len(clean) == 0 {
		return 0
	}
	amount, err := strconv.ParseFloat(string(clean), 64)
	if err != nil {
		return 0
	}
	return amount
}
