// Package scheduler fires dashboard refreshes on a cron cadence.
package scheduler

import (
	"context"
	"time"

	cronlib "github.com/robfig/cron/v3"

	"github.com/ai4p/usagedash/internal/logging"
)

// RefreshFunc runs one dashboard refresh.
type RefreshFunc func(ctx context.Context)

// Scheduler wraps a cron runner pinned to the configured timezone. The
// default schedule fires at 08:00, 12:00 and 18:00 Pacific.
type Scheduler struct {
	cron *cronlib.Cron
	spec string
}

// New builds a scheduler that calls refresh on the given cron spec,
// evaluated in loc.
func New(spec string, loc *time.Location, refresh RefreshFunc) (*Scheduler, error) {
	c := cronlib.New(cronlib.WithLocation(loc))
	if _, err := c.AddFunc(spec, func() {
		logging.Info("Scheduled refresh firing...")
		refresh(context.Background())
	}); err != nil {
		return nil, err
	}
	return &Scheduler{cron: c, spec: spec}, nil
}

// Start launches the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	logging.Infof("Scheduler started: %q (next run %s)", s.spec, s.Next().Format(time.RFC1123))
}

// Stop halts scheduling and waits for an in-flight job to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the next scheduled firing time, zero before Start.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	next := entries[0].Next
	for _, e := range entries[1:] {
		if e.Next.Before(next) {
			next = e.Next
		}
	}
	return next
}
