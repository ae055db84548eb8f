// Package scheduler runs a job once a day at a fixed local time.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"fintrack/internal/logger"
)

// Job is the work run on each tick. asOf is the tick time.
type Job func(ctx context.Context, asOf time.Time) error

// Daily fires Job every day at Hour:Minute in the clock's location.
type Daily struct {
	hour   int
	minute int
	job    Job
	now    func() time.Time
	log    *zap.SugaredLogger
}

// ParseRunAt parses an "HH:MM" wall-clock time.
func ParseRunAt(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid run time %q, expected HH:MM: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

// NewDaily creates a Daily for runAt ("HH:MM"). A nil now uses time.Now.
func NewDaily(runAt string, job Job, now func() time.Time) (*Daily, error) {
	hour, minute, err := ParseRunAt(runAt)
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return &Daily{hour: hour, minute: minute, job: job, now: now, log: logger.Named("scheduler")}, nil
}

// Next returns the first run time strictly after t.
func (d *Daily) Next(t time.Time) time.Time {
	next := time.Date(t.Year(), t.Month(), t.Day(), d.hour, d.minute, 0, 0, t.Location())
	if !next.After(t) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is done, running the job at every scheduled time.
// A failing run is logged and the schedule continues.
func (d *Daily) Run(ctx context.Context) {
	for {
		next := d.Next(d.now())
		d.log.Infow("next scheduled run", "at", next.Format(time.RFC3339))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		if err := d.job(ctx, d.now()); err != nil {
			d.log.Errorw("scheduled run failed", "error", err)
		}
	}
}
