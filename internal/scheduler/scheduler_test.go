package scheduler

import (
	"context"
	"testing"
	"time"
)

func TestNewInvalidSpec(t *testing.T) {
	_, err := New("not a cron spec", time.UTC, func(context.Context) {})
	if err == nil {
		t.Fatal("expected error for invalid spec")
	}
}

func TestNextRunHour(t *testing.T) {
	s, err := New("0 8,12,18 * * *", time.UTC, func(context.Context) {})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	next := s.Next()
	if next.IsZero() {
		t.Fatal("Next returned zero after Start")
	}
	switch next.In(time.UTC).Hour() {
	case 8, 12, 18:
	default:
		t.Errorf("next run hour = %d, want one of 8, 12, 18", next.In(time.UTC).Hour())
	}
	if !next.After(time.Now()) {
		t.Errorf("next run %v is not in the future", next)
	}
}

func TestNextBeforeStart(t *testing.T) {
	s, err := New("0 8,12,18 * * *", time.UTC, func(context.Context) {})
	if err != nil {
		t.Fatal(err)
	}
	if !s.Next().IsZero() {
		t.Error("Next should be zero before Start")
	}
}

func TestRefreshFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	s, err := New("@every 1s", time.UTC, func(context.Context) {
		select {
		case fired <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Start()
	defer s.Stop()

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("refresh did not fire")
	}
}
