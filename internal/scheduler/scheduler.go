// Package scheduler runs the update and analysis jobs on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one schedulable pipeline stage.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler drives the periodic update and analysis runs. The analysis
// schedule normally trails the update schedule so indicators are computed
// over fresh history.
type Scheduler struct {
	cron     *cron.Cron
	updater  Job
	analyzer Job
	log      *slog.Logger
	ctx      context.Context
}

// New creates a Scheduler whose jobs run under ctx.
func New(ctx context.Context, updater, analyzer Job, log *slog.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		updater:  updater,
		analyzer: analyzer,
		log:      log.With("component", "scheduler"),
		ctx:      ctx,
	}
}

// Register registers both jobs on their cron expressions. An empty
// expression leaves that job unscheduled.
func (s *Scheduler) Register(updateCron, analyzeCron string) error {
	if updateCron != "" {
		if _, err := s.cron.AddFunc(updateCron, func() { s.runJob("update", s.updater) }); err != nil {
			return fmt.Errorf("registering update schedule: %w", err)
		}
	}
	if analyzeCron != "" {
		if _, err := s.cron.AddFunc(analyzeCron, func() { s.runJob("analysis", s.analyzer) }); err != nil {
			return fmt.Errorf("registering analysis schedule: %w", err)
		}
	}
	return nil
}

// Start starts the cron loop.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops scheduling new runs and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

// RunUpdateNow executes the update job immediately, outside its schedule.
func (s *Scheduler) RunUpdateNow() {
	s.runJob("update", s.updater)
}

func (s *Scheduler) runJob(name string, job Job) {
	if job == nil {
		return
	}
	started := time.Now()
	s.log.Info("job starting", "job", name)
	if err := job.Run(s.ctx); err != nil {
		s.log.Error("job failed", "job", name, "error", err)
		return
	}
	s.log.Info("job finished", "job", name, "took", time.Since(started).Round(time.Second))
}
