package linkt

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/fleetpilot/fleet-api/internal/business/tollscan"
	"github.com/fleetpilot/fleet-api/pkg/model"
)

// The portal's anti-automation posture rejects bare default clients, so
// every session presents a realistic identity.
const (
	userAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	acceptLanguage = "en-AU,en;q=0.9"
)

// Form selectors on the search page.
const (
	selSearchForm   = `#toll-notice-search`
	selPlateInput   = `#plateNumber`
	selStateSelect  = `#issuingState`
	selNoticeInput  = `#noticeNumber`
	selTwoWheeler   = `#twoWheelerFlag`
	selSubmitButton = `#toll-notice-search button[type="submit"]`
	selResultsTable = `table.notice-results`
)

// resultWaitJS resolves the two terminal DOM conditions as one predicate:
// a populated results table, or any known "no results" phrasing. Polling a
// single disjunction avoids the race between two independent waits.
const resultWaitJS = `() => {
	if (document.querySelector('table.notice-results tbody tr')) {
		return 'results';
	}
	const text = (document.body.innerText || '').toLowerCase();
	for (const phrase of %s) {
		if (text.includes(phrase)) {
			return 'empty';
		}
	}
	return false;
}`

// Config tunes one Driver instance.
type Config struct {
	BaseURL     string
	Headless    bool
	NavTimeout  time.Duration // page shell load budget
	WaitTimeout time.Duration // result/no-result wait budget
	SnapshotDir string        // diagnostic captures on failure; empty disables
}

// Driver runs toll notice searches through a real browser. One browser
// context per Acquire call; the portal is sensitive to session reuse
// artifacts, so nothing is shared across calls.
type Driver struct {
	cfg    Config
	logger *slog.Logger
}

var _ tollscan.PortalDriver = (*Driver)(nil)

func NewDriver(cfg Config, logger *slog.Logger) *Driver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = 15 * time.Second
	}
	if cfg.WaitTimeout <= 0 {
		cfg.WaitTimeout = 25 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{cfg: cfg, logger: logger}
}

// Acquire navigates the portal's search form for one query and returns the
// raw results table (or the empty-result marker). All browser resources are
// released before returning, whatever the outcome.
func (d *Driver) Acquire(ctx context.Context, query model.SearchQuery) (tollscan.RawPortalResult, error) {
	var raw tollscan.RawPortalResult

	label, ok := PortalLabel(query.Jurisdiction)
	if !ok {
		return raw, &tollscan.InputError{Field: "jurisdiction", Reason: "portal cannot search " + string(query.Jurisdiction)}
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.cfg.Headless),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	searchURL := d.cfg.BaseURL + SearchPath

	// The page shell gets a short budget of its own: a portal that cannot
	// even serve its form is a fast, retryable failure.
	navCtx, cancelNav := context.WithTimeout(browserCtx, d.cfg.NavTimeout)
	defer cancelNav()
	err := chromedp.Run(navCtx,
		network.Enable(),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": acceptLanguage}),
		chromedp.Navigate(searchURL),
		chromedp.WaitVisible(selSearchForm, chromedp.ByQuery),
	)
	if err != nil {
		return raw, &tollscan.PortalError{Kind: tollscan.PortalNavigationFailed, URL: searchURL, Err: err}
	}

	actions := []chromedp.Action{
		chromedp.SendKeys(selPlateInput, query.Plate, chromedp.ByQuery),
		chromedp.SetValue(selStateSelect, label, chromedp.ByQuery),
	}
	if query.NoticeNumberHint != "" {
		actions = append(actions, chromedp.SendKeys(selNoticeInput, query.NoticeNumberHint, chromedp.ByQuery))
	}
	if query.TwoWheeler {
		actions = append(actions, chromedp.Click(selTwoWheeler, chromedp.ByQuery))
	}
	actions = append(actions, chromedp.Click(selSubmitButton, chromedp.ByQuery))
	if err := chromedp.Run(browserCtx, actions...); err != nil {
		return raw, &tollscan.PortalError{Kind: tollscan.PortalNavigationFailed, URL: searchURL, Err: fmt.Errorf("submit search form: %w", err)}
	}

	var outcome string
	err = chromedp.Run(browserCtx,
		chromedp.PollFunction(waitPredicate(), &outcome,
			chromedp.WithPollingTimeout(d.cfg.WaitTimeout),
			chromedp.WithPollingInterval(500*time.Millisecond),
		),
	)
	if err != nil {
		finalURL := d.currentLocation(browserCtx)
		if errors.Is(err, chromedp.ErrPollingTimeout) || errors.Is(err, context.DeadlineExceeded) {
			d.snapshot(browserCtx, query)
			return raw, &tollscan.PortalError{Kind: tollscan.PortalResultWaitTimeout, URL: finalURL, Err: err}
		}
		return raw, &tollscan.PortalError{Kind: tollscan.PortalNavigationFailed, URL: finalURL, Err: err}
	}

	raw.FinalURL = d.currentLocation(browserCtx)
	if outcome == "empty" {
		raw.Empty = true
		return raw, nil
	}

	if err := chromedp.Run(browserCtx, chromedp.OuterHTML(selResultsTable, &raw.TableHTML, chromedp.ByQuery)); err != nil {
		d.snapshot(browserCtx, query)
		return raw, &tollscan.PortalError{Kind: tollscan.PortalStructureChanged, URL: raw.FinalURL, Err: fmt.Errorf("extract results table: %w", err)}
	}
	return raw, nil
}

func waitPredicate() string {
	quoted := make([]string, 0, len(noResultsPhrases))
	for _, p := range noResultsPhrases {
		quoted = append(quoted, fmt.Sprintf("%q", p))
	}
	return fmt.Sprintf(resultWaitJS, "["+strings.Join(quoted, ",")+"]")
}

func (d *Driver) currentLocation(ctx context.Context) string {
	var url string
	locCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = chromedp.Run(locCtx, chromedp.Location(&url))
	return url
}

// snapshot writes a diagnostic screenshot for offline analysis of a failed
// wait. Best effort only: it must never error or block the caller's
// failure path.
func (d *Driver) snapshot(ctx context.Context, query model.SearchQuery) {
	if d.cfg.SnapshotDir == "" {
		return
	}
	shotCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		d.logger.Debug("portal snapshot capture failed", "plate", query.Plate, "err", err)
		return
	}
	name := fmt.Sprintf("portal_%s_%s_%d.png", query.Plate, query.Jurisdiction, time.Now().Unix())
	if err := os.WriteFile(filepath.Join(d.cfg.SnapshotDir, name), buf, 0o644); err != nil {
		d.logger.Debug("portal snapshot write failed", "file", name, "err", err)
	}
}
