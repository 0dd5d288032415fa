// Package sched dispatches subscription reports on their schedules.
// Next-run projection is timezone-aware: each subscription advances from
// its previous scheduled instant at the subscriber's preferred wall-clock
// time, so runs stay aligned across DST transitions.
package sched

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"intelwatch/internal/delivery"
	"intelwatch/internal/logger"
)

// Frequency is how often a subscription fires.
type Frequency string

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Valid reports whether f is a known frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// Subscription is one standing report request. NextRunAt and LastRunAt are
// stored in UTC; PreferredTime is a wall-clock "15:04" in Timezone.
type Subscription struct {
	ID              string    `json:"id"`
	Recipient       string    `json:"recipient"`
	Topic           string    `json:"topic"`
	FocusAreas      []string  `json:"focus_areas"`
	DeliveryFormat  string    `json:"delivery_format"`
	Frequency       Frequency `json:"frequency"`
	PreferredTime   string    `json:"preferred_time"`
	Timezone        string    `json:"timezone"`
	Active          bool      `json:"active"`
	NextRunAt       time.Time `json:"next_run_at"`
	LastRunAt       time.Time `json:"last_run_at"`
	FailureStreak   int       `json:"failure_streak"`
	TotalDispatched int       `json:"total_dispatched"`
}

// Due reports whether the subscription should fire at now.
func (s *Subscription) Due(now time.Time) bool {
	return s.Active && !s.NextRunAt.IsZero() && !s.NextRunAt.After(now)
}

// Store persists subscriptions.
type Store interface {
	List(ctx context.Context) ([]Subscription, error)
	Update(ctx context.Context, sub Subscription) error
}

// Dispatcher builds and sends the report for one subscription.
type Dispatcher interface {
	Dispatch(ctx context.Context, req delivery.Request) error
}

// TickOptions adjust one scheduler pass.
type TickOptions struct {
	DryRun   bool
	Timezone string // non-empty restricts the pass to subscriptions in this timezone
}

// TickResult summarises one pass.
type TickResult struct {
	Dispatched    int
	Failed        int
	Skipped       int
	DryRun        bool
	WouldDispatch []string // subscription IDs, dry runs only
}

// Scheduler runs ticks over the subscription store. Ticks never overlap:
// a tick that starts while another is running returns immediately.
type Scheduler struct {
	store          Store
	dispatcher     Dispatcher
	now            func() time.Time
	alertThreshold int
	running        atomic.Bool
	log            interface {
		Info(msg string, args ...any)
		Warn(msg string, args ...any)
		Error(msg string, args ...any)
	}
}

// New builds a scheduler. alertThreshold is the consecutive-failure count
// that triggers an alert log for a subscription; zero disables it.
func New(store Store, dispatcher Dispatcher, alertThreshold int) *Scheduler {
	return &Scheduler{
		store:          store,
		dispatcher:     dispatcher,
		now:            time.Now,
		alertThreshold: alertThreshold,
		log:            logger.With("sched"),
	}
}

// WithClock overrides the scheduler clock. Used in tests.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Tick selects due subscriptions and dispatches each. Per-subscription
// failures are absorbed: the subscription keeps its next_run_at so it is
// retried next tick, and the pass continues.
func (s *Scheduler) Tick(ctx context.Context, opts TickOptions) (*TickResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Warn("tick skipped, previous tick still running")
		return &TickResult{}, nil
	}
	defer s.running.Store(false)

	subs, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}

	now := s.now()
	result := &TickResult{DryRun: opts.DryRun}

	for _, sub := range subs {
		if opts.Timezone != "" && sub.Timezone != opts.Timezone {
			result.Skipped++
			continue
		}
		if !sub.Due(now) {
			result.Skipped++
			continue
		}

		if opts.DryRun {
			next, err := s.project(sub, now)
			if err != nil {
				s.log.Warn("cannot project next run", "subscription", sub.ID, "error", err)
				continue
			}
			s.log.Info("dry run: would dispatch",
				"subscription", sub.ID,
				"recipient", sub.Recipient,
				"topic", sub.Topic,
				"next_run_at", next.Format(time.RFC3339))
			result.WouldDispatch = append(result.WouldDispatch, sub.ID)
			continue
		}

		if err := s.dispatchOne(ctx, sub, now); err != nil {
			result.Failed++
		} else {
			result.Dispatched++
		}
	}

	s.log.Info("tick finished",
		"dispatched", result.Dispatched,
		"failed", result.Failed,
		"skipped", result.Skipped,
		"dry_run", result.DryRun)
	return result, nil
}

func (s *Scheduler) dispatchOne(ctx context.Context, sub Subscription, now time.Time) error {
	req := delivery.Request{
		Recipient:      sub.Recipient,
		Topic:          sub.Topic,
		FocusAreas:     sub.FocusAreas,
		DeliveryFormat: sub.DeliveryFormat,
	}

	if err := s.dispatcher.Dispatch(ctx, req); err != nil {
		// next_run_at stays put so the next tick retries.
		sub.FailureStreak++
		if s.alertThreshold > 0 && sub.FailureStreak >= s.alertThreshold {
			s.log.Error("subscription failing repeatedly",
				"subscription", sub.ID,
				"recipient", sub.Recipient,
				"streak", sub.FailureStreak)
		} else {
			s.log.Warn("dispatch failed", "subscription", sub.ID, "error", err)
		}
		if uerr := s.store.Update(ctx, sub); uerr != nil {
			s.log.Error("recording dispatch failure", "subscription", sub.ID, "error", uerr)
		}
		return err
	}

	next, err := s.project(sub, now)
	if err != nil {
		return fmt.Errorf("projecting next run for %s: %w", sub.ID, err)
	}

	sub.LastRunAt = now.UTC()
	sub.NextRunAt = next
	sub.FailureStreak = 0
	sub.TotalDispatched++
	if err := s.store.Update(ctx, sub); err != nil {
		return fmt.Errorf("updating subscription %s: %w", sub.ID, err)
	}
	return nil
}

func (s *Scheduler) project(sub Subscription, now time.Time) (time.Time, error) {
	return NextAfter(sub.NextRunAt, sub.Frequency, sub.PreferredTime, sub.Timezone, now)
}

// NextAfter projects the next run from the previous scheduled instant, not
// from now, so a late tick does not drift the schedule. The result is the
// first candidate strictly after now at the preferred wall-clock time in
// tz, returned in UTC.
func NextAfter(prev time.Time, freq Frequency, preferred, tz string, now time.Time) (time.Time, error) {
	if !freq.Valid() {
		return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
	}

	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("loading timezone %q: %w", tz, err)
	}

	wall, err := time.Parse("15:04", preferred)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing preferred time %q: %w", preferred, err)
	}

	base := prev
	if base.IsZero() {
		base = now
	}
	local := base.In(loc)

	// Rebuild the candidate from date components each step so the
	// preferred wall-clock time survives DST transitions.
	candidate := time.Date(local.Year(), local.Month(), local.Day(),
		wall.Hour(), wall.Minute(), 0, 0, loc)

	for !candidate.After(now) {
		switch freq {
		case Daily:
			candidate = candidate.AddDate(0, 0, 1)
		case Weekly:
			candidate = candidate.AddDate(0, 0, 7)
		case Monthly:
			candidate = candidate.AddDate(0, 1, 0)
		}
		candidate = time.Date(candidate.Year(), candidate.Month(), candidate.Day(),
			wall.Hour(), wall.Minute(), 0, 0, loc)
	}

	return candidate.UTC(), nil
}
