// Package worker runs the helpdesk background jobs.
package worker

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/service"
)

// Job names.
const (
	JobEscalation   = "escalation_sweep"
	JobDailySummary = "daily_summary"
	JobWeeklyReport = "weekly_report"
)

// Reports produces the periodic staff reports.
type Reports interface {
	EscalationSweep(ctx context.Context) (service.EscalationResult, error)
	DailySummary(ctx context.Context) (service.DailySummary, error)
	WeeklyReport(ctx context.Context) (service.WeeklyReport, error)
}

// Schedule returns the first run strictly after now.
type Schedule func(now time.Time) time.Time

// Every runs at a fixed interval.
func Every(d time.Duration) Schedule {
	return func(now time.Time) time.Time { return now.Add(d) }
}

// DailyAt runs once a day at hour:00 in loc.
func DailyAt(hour int, loc *time.Location) Schedule {
	return func(now time.Time) time.Time {
		local := now.In(loc)
		next := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
		if !next.After(local) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

// WeeklyAt runs once a week on day at hour:00 in loc.
func WeeklyAt(day time.Weekday, hour int, loc *time.Location) Schedule {
	daily := DailyAt(hour, loc)
	return func(now time.Time) time.Time {
		next := daily(now)
		for next.Weekday() != day {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

type job struct {
	name     string
	schedule Schedule
	run      func(ctx context.Context) error
}

// Scheduler fires report jobs on their schedules. Jobs only read tickets and
// append notifications, so a skipped or overlapping run is harmless.
type Scheduler struct {
	jobs     map[string]job
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewScheduler registers the jobs enabled in cfg.
func NewScheduler(reports Reports, cfg config.SchedulerConfig, metrics *observability.Metrics, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		jobs:     make(map[string]job),
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	loc := cfg.Location()

	// Results are logged by the report service; the scheduler logs failures only.
	escalate := job{name: JobEscalation, run: func(ctx context.Context) error {
		_, err := reports.EscalationSweep(ctx)
		return err
	}}
	daily := job{name: JobDailySummary, run: func(ctx context.Context) error {
		_, err := reports.DailySummary(ctx)
		return err
	}}
	weekly := job{name: JobWeeklyReport, run: func(ctx context.Context) error {
		_, err := reports.WeeklyReport(ctx)
		return err
	}}

	if cfg.EscalationEnabled {
		interval := time.Duration(cfg.EscalationIntervalMinutes) * time.Minute
		if interval <= 0 {
			interval = 30 * time.Minute
		}
		escalate.schedule = Every(interval)
	}
	if cfg.DailySummaryEnabled {
		daily.schedule = DailyAt(cfg.DailySummaryHour, loc)
	}
	if cfg.WeeklyReportEnabled {
		weekly.schedule = WeeklyAt(time.Monday, cfg.WeeklyReportHour, loc)
	}
	// Disabled jobs stay registered so they can still be run by hand.
	for _, j := range []job{escalate, daily, weekly} {
		s.jobs[j.name] = j
	}
	return s
}

// Jobs lists the registered job names.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Start launches one loop per scheduled job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, name := range s.Jobs() {
		j := s.jobs[name]
		if j.schedule == nil {
			continue
		}
		s.logger.Info("scheduling job", zap.String("job", j.name), zap.Time("next_run", j.schedule(s.now())))
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.loop(ctx, j)
		}()
	}
}

// Stop stops every loop and waits for running jobs. Safe to call twice.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		s.logger.Info("scheduler stopped")
	})
}

// RunNow runs the named job once.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	j, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("unknown job %q", name)
	}
	return s.execute(ctx, j)
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	for {
		wait := j.schedule(s.now()).Sub(s.now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			_ = s.execute(ctx, j)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, j job) error {
	start := time.Now()
	s.metrics.RecordJobRun(j.name)
	if err := j.run(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", j.name), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return err
	}
	s.logger.Debug("job finished", zap.String("job", j.name), zap.Duration("duration", time.Since(start)))
	return nil
}
