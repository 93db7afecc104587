package scrape

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/unidash"
)

// ChromeEngine drives an installed Chrome over the DevTools protocol.
// Useful where the Playwright driver download is unavailable and a
// system browser already holds the UniDash session.
type ChromeEngine struct {
	headless   bool
	profileDir string
	execPath   string
}

// NewChromeEngine returns the CDP engine. An empty execPath lets the
// allocator discover an installed browser.
func NewChromeEngine(headless bool, profileDir, execPath string) *ChromeEngine {
	if execPath == "" {
		if exe, err := FindChromeExecutable(""); err == nil && exe != nil {
			execPath = exe.Path
		}
	}
	return &ChromeEngine{headless: headless, profileDir: profileDir, execPath: execPath}
}

func (e *ChromeEngine) Name() string { return "cdp" }

// Fetch implements Engine.
func (e *ChromeEngine) Fetch(ctx context.Context, t Target) ([]unidash.UsageRow, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", e.headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.UserDataDir(e.profileDir),
	)
	if e.execPath != "" {
		opts = append(opts, chromedp.ExecPath(e.execPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	logging.Infof("Navigating to UniDash (%s pre-selected)...", t.ManagerName)
	navCtx, cancelNav := context.WithTimeout(browserCtx, t.NavTimeout)
	defer cancelNav()
	if err := chromedp.Run(navCtx,
		chromedp.Navigate(t.URL),
		chromedp.WaitReady("body"),
	); err != nil {
		e.screenshot(browserCtx, t.ScreenshotPath)
		return nil, fmt.Errorf("navigate: %w", err)
	}

	logging.Infof("Waiting for %s table...", t.SectionText)
	if err := e.waitForText(browserCtx, t.SectionText, t.WaitTimeout); err != nil {
		logging.Warnf("Warning during wait: %v", err)
	} else if err := e.waitForText(browserCtx, t.ManagerName, t.NameTimeout); err != nil {
		logging.Warnf("Warning during wait: %v", err)
	} else if err := settle(ctx, t.SettleDelay); err != nil {
		return nil, err
	}

	logging.Info("Extracting table data...")
	var rows []unidash.UsageRow
	if err := chromedp.Run(browserCtx,
		chromedp.Evaluate("("+extractRowsJS+")()", &rows),
	); err != nil {
		e.screenshot(browserCtx, t.ScreenshotPath)
		return nil, fmt.Errorf("extract rows: %w", err)
	}

	logging.Infof("Raw rows extracted: %d", len(rows))
	return rows, nil
}

// waitForText polls until the page text contains s.
func (e *ChromeEngine) waitForText(ctx context.Context, s string, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	js := fmt.Sprintf("document.body && document.body.innerText.includes(%q)", s)
	return chromedp.Run(waitCtx, chromedp.Poll(js, nil))
}

func (e *ChromeEngine) screenshot(ctx context.Context, path string) {
	if path == "" {
		return
	}
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.FullScreenshot(&buf, 90)); err != nil {
		logging.Warnf("Failed to capture failure screenshot: %v", err)
		return
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		logging.Warnf("Failed to save failure screenshot: %v", err)
		return
	}
	logging.Infof("Failure screenshot saved to %s", path)
}
