// Package scheduler fires the periodic stat resets on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adhocore/gronx"
)

// Job is a named task bound to a cron expression.
type Job struct {
	Name string
	Expr string
	Run  func()
}

// Scheduler evaluates its jobs once per minute and runs the due ones.
type Scheduler struct {
	jobs []Job
	gron *gronx.Gronx
}

func New() *Scheduler {
	return &Scheduler{gron: gronx.New()}
}

// Add registers a job. Invalid cron expressions are rejected up front so a
// config typo surfaces at startup, not at the first missed tick.
func (s *Scheduler) Add(name, expr string, run func()) error {
	if !s.gron.IsValid(expr) {
		return fmt.Errorf("invalid cron expression %q for %s", expr, name)
	}
	s.jobs = append(s.jobs, Job{Name: name, Expr: expr, Run: run})
	return nil
}

// Start runs the tick loop until ctx is cancelled. Jobs run inline on the
// loop goroutine; resets are cheap map swaps.
func (s *Scheduler) Start(ctx context.Context) {
	if len(s.jobs) == 0 {
		return
	}
	for _, job := range s.jobs {
		next, err := gronx.NextTick(job.Expr, false)
		if err == nil {
			slog.Info("job scheduled", "job", job.Name, "expr", job.Expr, "next", next)
		}
	}

	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.tick(now)
		}
	}
}

func (s *Scheduler) tick(now time.Time) {
	for _, job := range s.jobs {
		due, err := s.gron.IsDue(job.Expr, now)
		if err != nil {
			slog.Error("cron evaluation failed", "job", job.Name, "error", err)
			continue
		}
		if !due {
			continue
		}
		slog.Info("job firing", "job", job.Name)
		job.Run()
	}
}
