// Package pipeline orchestrates one dashboard refresh end to end:
// scrape, filter, render, publish, upload, record.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ai4p/usagedash/internal/config"
	"github.com/ai4p/usagedash/internal/history"
	"github.com/ai4p/usagedash/internal/logging"
	"github.com/ai4p/usagedash/internal/report"
	"github.com/ai4p/usagedash/internal/scrape"
	"github.com/ai4p/usagedash/internal/unidash"
	"github.com/ai4p/usagedash/internal/upload"
)

// ErrInFlight reports that a refresh is already running.
var ErrInFlight = errors.New("refresh already in flight")

// Pipeline runs refreshes one at a time.
type Pipeline struct {
	cfg      *config.Config
	engine   scrape.Engine
	renderer *report.Renderer
	uploader upload.Uploader
	store    *history.Store // optional

	mu sync.Mutex // single-flight gate
}

// New wires a pipeline from config. store may be nil when run history
// isn't wanted.
func New(cfg *config.Config, store *history.Store) (*Pipeline, error) {
	engine, err := scrape.New(cfg)
	if err != nil {
		return nil, err
	}
	renderer, err := report.NewRenderer(cfg.Manager, cfg.Server.LiveReload)
	if err != nil {
		return nil, err
	}
	uploader, err := upload.New(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		cfg:      cfg,
		engine:   engine,
		renderer: renderer,
		uploader: uploader,
		store:    store,
	}, nil
}

// Busy reports whether a refresh is currently running.
func (p *Pipeline) Busy() bool {
	if p.mu.TryLock() {
		p.mu.Unlock()
		return false
	}
	return true
}

// Refresh runs one scrape → filter → render → publish → upload cycle
// and records the run. An aborted run leaves the published dashboard
// untouched. Returns ErrInFlight when another refresh holds the gate.
func (p *Pipeline) Refresh(ctx context.Context, trigger string) (*history.Run, error) {
	if !p.mu.TryLock() {
		return nil, ErrInFlight
	}
	defer p.mu.Unlock()

	logging.Info(strings.Repeat("=", 60))
	logging.Info("Starting AI4P dashboard refresh...")

	run := &history.Run{Trigger: trigger, StartedAt: time.Now()}
	err := p.refresh(ctx, run)
	run.FinishedAt = time.Now()
	p.record(ctx, run)
	if err != nil {
		return run, err
	}

	logging.Info("Dashboard refresh complete.")
	logging.Info(strings.Repeat("=", 60))
	return run, nil
}

func (p *Pipeline) refresh(ctx context.Context, run *history.Run) error {
	raw, err := p.engine.Fetch(ctx, scrape.TargetFromConfig(p.cfg))
	if err != nil {
		run.Status = history.StatusScrapeError
		run.Error = err.Error()
		logging.Errorf("ERROR during scrape: %v", err)
		return fmt.Errorf("scrape: %w", err)
	}

	rows := unidash.Filter(raw, p.cfg.People)
	logging.Infof("Filtered rows: %v", unidash.Names(rows))
	run.RowsMatched = len(rows)

	if len(rows) == 0 {
		run.Status = history.StatusEmpty
		run.Error = unidash.ErrNoRowsMatched.Error()
		logging.Error("ERROR: No matching rows found. Keeping existing dashboard.")
		return unidash.ErrNoRowsMatched
	}

	data := p.renderer.Build(rows, time.Now())
	if data.KPI.OrgPct != unidash.Absent {
		run.OrgUsage = data.KPI.OrgPct
	}

	if err := p.renderer.Publish(p.cfg.OutputPath(), data); err != nil {
		run.Status = history.StatusRenderError
		run.Error = err.Error()
		logging.Errorf("ERROR writing dashboard: %v", err)
		return fmt.Errorf("publish: %w", err)
	}
	logging.Infof("Dashboard HTML written to %s", p.cfg.OutputPath())

	if err := unidash.SaveRows(p.cfg.RowsPath(), rows); err != nil {
		logging.Warnf("Could not save row snapshot: %v", err)
	}

	run.Status = history.StatusOK
	p.upload(ctx, run)
	return nil
}

func (p *Pipeline) upload(ctx context.Context, run *history.Run) {
	if p.uploader.Name() == "none" {
		return
	}

	logging.Info("Uploading to Google Drive...")
	if err := p.uploader.Upload(ctx, p.cfg.OutputPath()); err != nil {
		run.UploadError = err.Error()
		logging.Warnf("Upload error: %s", err)
		logging.Warn("WARNING: Google Drive upload failed.")
		return
	}
	run.Uploaded = true
	logging.Info("Upload to Google Drive successful.")
}

func (p *Pipeline) record(ctx context.Context, run *history.Run) {
	if p.store == nil {
		return
	}
	if err := p.store.Record(ctx, run); err != nil {
		logging.Warnf("Could not record run history: %v", err)
	}
}

// Render rebuilds and publishes the dashboard from the saved row
// snapshot, without touching a browser. Used by `usagedash render`.
func (p *Pipeline) Render(now time.Time) error {
	rows, err := unidash.LoadRows(p.cfg.RowsPath())
	if err != nil {
		return fmt.Errorf("load row snapshot: %w", err)
	}
	if len(rows) == 0 {
		return unidash.ErrNoRowsMatched
	}

	if err := p.renderer.Publish(p.cfg.OutputPath(), p.renderer.Build(rows, now)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	logging.Infof("Dashboard HTML written to %s", p.cfg.OutputPath())
	return nil
}
