// Package calendar runs the zero-touch pass on a timetable, so orders
// for today's appointments exist before anyone opens the board.
package calendar

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Syncer materializes same-day appointments into repair orders.
type Syncer interface {
	SyncCalendar() error
}

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextCronDuration parses a 5-field cron expression and returns the
// duration until the next fire time. Returns 0 on parse error.
func NextCronDuration(expr string) time.Duration {
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return 0
	}
	next := sched.Next(time.Now())
	d := time.Until(next)
	if d < 0 {
		return 0
	}
	return d
}

// Scheduler fires the zero-touch sync on a cron timetable.
type Scheduler struct {
	syncer Syncer
	expr   string
}

func NewScheduler(syncer Syncer, expr string) *Scheduler {
	return &Scheduler{syncer: syncer, expr: expr}
}

// Run syncs once immediately, then on every cron fire until ctx ends.
// An unparseable expression disables the timetable after the initial
// pass.
func (s *Scheduler) Run(ctx context.Context) {
	s.sync()

	d := NextCronDuration(s.expr)
	if d <= 0 {
		log.Printf("calendar: invalid sync cron %q; timetable disabled", s.expr)
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			s.sync()
			next := NextCronDuration(s.expr)
			if next <= 0 {
				return
			}
			timer.Reset(next)
		}
	}
}

func (s *Scheduler) sync() {
	if err := s.syncer.SyncCalendar(); err != nil {
		log.Printf("calendar: zero-touch sync: %v", err)
	}
}
