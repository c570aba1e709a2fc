package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"
)

type syncer interface {
	ReconcileAll(ctx context.Context) error
}

// Scheduler runs the periodic reconcile of every connected owner.
type Scheduler struct {
	syncer   syncer
	schedule string
	log      *slog.Logger
}

// New takes a cron schedule ("@every 15m", "*/10 * * * *"). An empty schedule
// disables the scheduler.
func New(s syncer, schedule string, log *slog.Logger) *Scheduler {
	return &Scheduler{syncer: s, schedule: schedule, log: log}
}

// Start blocks until ctx is done. Overlapping ticks are skipped.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.log.Info("scheduler disabled")
		return nil
	}

	cl := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(cl), cron.WithChain(
		cron.Recover(cl),
		cron.SkipIfStillRunning(cl),
	))

	if _, err := c.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		return err
	}

	s.log.Info("scheduler started", "schedule", s.schedule)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	s.log.Info("scheduler stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.syncer.ReconcileAll(ctx); err != nil {
		s.log.Error("scheduled sync failed", "error", err)
	}
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
