package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/unidash"
)

var (
	pwOnce     sync.Once
	pwInstance *playwright.Playwright
	pwErr      error
)

// getPlaywright returns the singleton Playwright instance, installing
// the driver and browsers on first use.
func getPlaywright() (*playwright.Playwright, error) {
	pwOnce.Do(func() {
		if err := playwright.Install(); err != nil {
			pwErr = fmt.Errorf("failed to install playwright browsers: %w", err)
			return
		}
		pw, err := playwright.Run()
		if err != nil {
			pwErr = fmt.Errorf("failed to start playwright: %w", err)
			return
		}
		pwInstance = pw
	})
	return pwInstance, pwErr
}

// PlaywrightEngine drives Playwright's bundled Chromium with a
// persistent profile, so the UniDash auth cookies survive between
// runs.
type PlaywrightEngine struct {
	headless   bool
	profileDir string
}

// NewPlaywrightEngine returns the default scrape engine.
func NewPlaywrightEngine(headless bool, profileDir string) *PlaywrightEngine {
	return &PlaywrightEngine{headless: headless, profileDir: profileDir}
}

func (e *PlaywrightEngine) Name() string { return "playwright" }

// Fetch implements Engine.
func (e *PlaywrightEngine) Fetch(ctx context.Context, t Target) ([]unidash.UsageRow, error) {
	pw, err := getPlaywright()
	if err != nil {
		return nil, err
	}

	logging.Info("Launching browser with existing profile...")
	browser, err := pw.Chromium.LaunchPersistentContext(e.profileDir, playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(e.headless),
		Args:     []string{"--no-sandbox", "--disable-dev-shm-usage"},
	})
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	defer browser.Close()

	var page playwright.Page
	if pages := browser.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browser.NewPage()
		if err != nil {
			return nil, fmt.Errorf("open page: %w", err)
		}
	}

	logging.Infof("Navigating to UniDash (%s pre-selected)...", t.ManagerName)
	if _, err := page.Goto(t.URL, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(t.NavTimeout.Milliseconds())),
	}); err != nil {
		e.screenshot(page, t.ScreenshotPath)
		return nil, fmt.Errorf("navigate: %w", err)
	}

	// Wait for the table to appear and its data to render. Timeouts
	// here are logged and ignored; extraction proceeds regardless.
	logging.Infof("Waiting for %s table...", t.SectionText)
	if err := waitForText(page, t.SectionText, t.WaitTimeout); err != nil {
		logging.Warnf("Warning during wait: %v", err)
	} else if err := waitForText(page, t.ManagerName, t.NameTimeout); err != nil {
		logging.Warnf("Warning during wait: %v", err)
	} else if err := settle(ctx, t.SettleDelay); err != nil {
		return nil, err
	}

	logging.Info("Extracting table data...")
	raw, err := page.Evaluate(extractRowsJS)
	if err != nil {
		e.screenshot(page, t.ScreenshotPath)
		return nil, fmt.Errorf("extract rows: %w", err)
	}

	rows, err := decodeRows(raw)
	if err != nil {
		return nil, err
	}

	logging.Infof("Raw rows extracted: %d", len(rows))
	return rows, nil
}

func waitForText(page playwright.Page, text string, timeout time.Duration) error {
	_, err := page.WaitForSelector("text="+text, playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err
}

func (e *PlaywrightEngine) screenshot(page playwright.Page, path string) {
	if path == "" || page == nil {
		return
	}
	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		logging.Warnf("Failed to capture failure screenshot: %v", err)
		return
	}
	logging.Infof("Failure screenshot saved to %s", path)
}
