// Package scrape fetches the UniDash one-pager through a headless
// browser and extracts the manager rollup table. Two engines are
// provided: the default Playwright engine, which drives its own
// bundled Chromium, and a CDP engine that exec-allocates an installed
// Chrome.
package scrape

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/unidash"
)

// Engine fetches the dashboard page and returns its raw table rows.
type Engine interface {
	// Fetch navigates to the target, waits for the table to render and
	// extracts every candidate row. Wait timeouts are logged and
	// ignored; navigation and extraction errors are not.
	Fetch(ctx context.Context, target Target) ([]unidash.UsageRow, error)
	Name() string
}

// Target describes one scrape.
type Target struct {
	URL         string
	SectionText string // heading that marks the reports table
	ManagerName string // pre-selected manager, the second render wait
	NavTimeout  time.Duration
	WaitTimeout time.Duration
	NameTimeout time.Duration
	SettleDelay time.Duration

	// ScreenshotPath, when set, receives a full-page capture if the
	// scrape fails. Best effort.
	ScreenshotPath string
}

// extractRowsJS pulls every table row with at least 7 cells whose
// usage cell looks like a percentage. Chain glyphs and whitespace are
// stripped from the name cell.
const extractRowsJS = `() => {
    const results = [];
    const tables = document.querySelectorAll('table');
    for (const table of tables) {
        const rows = table.querySelectorAll('tbody tr');
        for (const row of rows) {
            const cells = row.querySelectorAll('td');
            if (cells.length >= 7) {
                const name = cells[0].innerText.trim().replace(/^[⤷↳\s]+/, '').trim();
                const pillar = cells[1].innerText.trim();
                const func = cells[2].innerText.trim();
                const allocArea = cells[3].innerText.trim();
                const teamGroup = cells[4].innerText.trim();
                const l4_7 = cells[5].innerText.trim();
                const empCount = cells[6].innerText.trim();
                if (name && l4_7 && l4_7.includes('%')) {
                    results.push({ name, pillar, func, allocArea, teamGroup, l4_7, empCount });
                }
            }
        }
    }
    return results;
}`

// New returns the engine cfg selects: playwright by default, or the
// exec-allocated Chrome engine for "cdp".
func New(cfg *config.Config) (Engine, error) {
	switch cfg.Scrape.Engine {
	case "", "playwright":
		return NewPlaywrightEngine(cfg.Scrape.Headless, cfg.ProfileDir()), nil
	case "cdp":
		return NewChromeEngine(cfg.Scrape.Headless, cfg.ProfileDir(), cfg.Scrape.ChromePath), nil
	default:
		return nil, fmt.Errorf("unknown scrape engine %q (valid: playwright, cdp)", cfg.Scrape.Engine)
	}
}

// TargetFromConfig builds the scrape target from cfg.
func TargetFromConfig(cfg *config.Config) Target {
	t := Target{
		URL:         cfg.Dashboard.URL,
		SectionText: cfg.Dashboard.SectionText,
		ManagerName: cfg.Manager,
		NavTimeout:  time.Duration(cfg.Dashboard.NavTimeout) * time.Second,
		WaitTimeout: time.Duration(cfg.Dashboard.WaitTimeout) * time.Second,
		NameTimeout: time.Duration(cfg.Dashboard.NameTimeout) * time.Second,
		SettleDelay: time.Duration(cfg.Dashboard.SettleDelay) * time.Second,
	}
	if cfg.Scrape.ScreenshotOnFailure {
		t.ScreenshotPath = cfg.ScreenshotPath()
	}
	return t
}

// decodeRows converts an engine's evaluate result into usage rows via
// a JSON round trip.
func decodeRows(v any) ([]unidash.UsageRow, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode rows: %w", err)
	}
	var rows []unidash.UsageRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("decode rows: %w", err)
	}
	return rows, nil
}

// settle waits out the extra render delay, honoring cancellation.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
