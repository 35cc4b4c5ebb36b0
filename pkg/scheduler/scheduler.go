package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// BatchJob is an "update all users" run.
type BatchJob func(ctx context.Context) (*types.BatchResult, error)

type job struct {
	name string
	expr string
	fn   BatchJob
}

// Scheduler runs the nightly batch jobs in-process for deployments that
// don't use Cloud Scheduler.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	jobs      []job
}

// New creates a scheduler evaluating cron expressions in loc
func New(loc *time.Location, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := gocron.NewScheduler(loc)
	// A slow run must not overlap the next tick of the same job
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
	}
}

// Register adds a named job on a standard five-field cron expression.
func (s *Scheduler) Register(ctx context.Context, name, expr string, fn BatchJob) error {
	if _, err := s.scheduler.Cron(expr).Tag(name).Do(s.run, ctx, name, fn); err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, expr, err)
	}
	s.jobs = append(s.jobs, job{name: name, expr: expr, fn: fn})
	s.logger.Info("Job registered", "job", name, "cron", expr)
	return nil
}

// Len returns the number of registered jobs
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Start begins running all scheduled tasks without blocking
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// RunAll runs every registered job once, in registration order, and returns
// the first error.
func (s *Scheduler) RunAll(ctx context.Context) error {
	var firstErr error
	for _, j := range s.jobs {
		if err := s.run(ctx, j.name, j.fn); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (s *Scheduler) run(ctx context.Context, name string, fn BatchJob) error {
	start := time.Now()
	logger := s.logger.With("job", name)
	logger.Info("Job started")

	res, err := fn(ctx)
	if err != nil {
		logger.Error("Job failed", "error", err, "duration", time.Since(start))
		return err
	}
	if res == nil {
		res = &types.BatchResult{}
	}
	logger.Info("Job completed",
		"total", res.TotalUsers,
		"succeeded", res.Succeeded,
		"failed", res.Failed,
		"duration", time.Since(start),
	)
	return nil
}
