// Package analytics computes and stores the per-user training analytics
// document: body part distribution, routine adherence, favorite exercises,
// best lifts and a comparison against followed users.
package analytics

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	"github.com/fitsocial/fitsocial-server/pkg/batch"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	infrapubsub "github.com/fitsocial/fitsocial-server/pkg/infrastructure/pubsub"
	"github.com/fitsocial/fitsocial-server/pkg/types"
	"github.com/fitsocial/fitsocial-server/pkg/workouts"
)

// DefaultLookback bounds the results an analytics run considers.
const DefaultLookback = 90 * 24 * time.Hour

const (
	eventSource = "/analytics"
	reportJob   = "analytics"
)

type Config struct {
	Lookback     time.Duration
	Concurrency  int
	ReportBucket string
}

// Result is the envelope returned to callers of the per-user update.
type Result struct {
	Success bool                 `json:"success"`
	Data    *types.UserAnalytics `json:"data,omitempty"`
	Message string               `json:"message,omitempty"`
	Error   string               `json:"error,omitempty"`
}

type Orchestrator struct {
	db        shared.Database
	publisher shared.Publisher
	blobs     shared.BlobStore
	fetcher   *workouts.Fetcher
	cfg       Config
	logger    *slog.Logger

	adherence    *AdherenceCalculator
	distribution *DistributionCalculator
	social       *SocialComparisonCalculator

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewOrchestrator(db shared.Database, resolver PartResolver, publisher shared.Publisher, blobs shared.BlobStore, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "analytics")
	if cfg.Lookback <= 0 {
		cfg.Lookback = DefaultLookback
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = batch.DefaultConcurrency
	}
	fetcher := workouts.NewFetcher(db, logger)
	return &Orchestrator{
		db:           db,
		publisher:    publisher,
		blobs:        blobs,
		fetcher:      fetcher,
		cfg:          cfg,
		logger:       logger,
		adherence:    NewAdherenceCalculator(db, logger),
		distribution: NewDistributionCalculator(resolver),
		social:       NewSocialComparisonCalculator(db, fetcher, logger),
		Now:          time.Now,
	}
}

// Update recomputes and overwrites the analytics document of uid.
// It returns ErrNoWorkoutData, without writing, when the lookback window is
// empty. Only the result fetch and the final write can fail.
func (o *Orchestrator) Update(ctx context.Context, uid string) (*types.UserAnalytics, error) {
	now := o.Now()
	results, err := o.fetcher.Fetch(ctx, uid, now.Add(-o.cfg.Lookback), now)
	if err != nil {
		return nil, apperrors.ErrStorageError.WithMessage("failed to fetch workout results").WithCause(err)
	}
	if len(results) == 0 {
		return nil, apperrors.ErrNoWorkoutData.WithMetadata("user_id", uid)
	}

	analytics := &types.UserAnalytics{
		OneRepMax:         OneRepMax(results),
		FavoriteExercises: FavoriteExercises(results),
		UpdatedAt:         now,
	}

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		analytics.Adherence = o.adherence.Compute(ctx, uid, results, now)
	}()
	go func() {
		defer wg.Done()
		analytics.Distribution = o.distribution.Compute(ctx, results)
	}()
	go func() {
		defer wg.Done()
		analytics.FollowingComparison = o.social.Compute(ctx, uid, now)
	}()
	wg.Wait()

	if err := o.db.SetUserAnalytics(ctx, uid, analytics); err != nil {
		return nil, apperrors.ErrStorageError.WithMessage("failed to save analytics").WithCause(err)
	}
	o.logger.Info("Analytics updated", "user_id", uid, "results", len(results))

	o.publish(ctx, uid, now)
	return analytics, nil
}

// UpdateUserAnalytics wraps Update in the caller-facing envelope. It never
// returns an error; failures are reported inside the Result.
func (o *Orchestrator) UpdateUserAnalytics(ctx context.Context, uid string) Result {
	if uid == "" {
		return Result{Success: false, Error: "userId is required"}
	}
	analytics, err := o.Update(ctx, uid)
	switch {
	case err == nil:
		return Result{Success: true, Data: analytics}
	case errors.Is(err, apperrors.ErrNoWorkoutData):
		return Result{Success: false, Message: apperrors.ErrNoWorkoutData.Message}
	default:
		o.logger.Error("Analytics update failed", "user_id", uid, "error", err)
		return Result{Success: false, Error: err.Error()}
	}
}

// UpdateAllUsersAnalytics updates every user with a result in the lookback
// window. Users are processed concurrently and independently.
func (o *Orchestrator) UpdateAllUsersAnalytics(ctx context.Context) (*types.BatchResult, error) {
	start := o.Now()
	users, err := o.fetcher.ActiveOwners(ctx, start.Add(-o.cfg.Lookback), start)
	if err != nil {
		o.logger.Error("Active user scan failed", "error", err)
		return &types.BatchResult{Success: false}, apperrors.ErrStorageError.WithMessage("failed to list active users").WithCause(err)
	}
	o.logger.Info("Starting analytics batch", "users", len(users))

	out := batch.Run(ctx, users, o.cfg.Concurrency, func(ctx context.Context, uid string) error {
		_, err := o.Update(ctx, uid)
		return err
	})
	if out.Err != nil {
		o.logger.Warn("Analytics batch finished with failures", "failed", out.Failed, "error", out.Err)
	}
	o.logger.Info("Analytics batch complete", "total", out.Total, "succeeded", out.Succeeded, "failed", out.Failed)

	batch.WriteReport(ctx, o.blobs, o.cfg.ReportBucket, batch.NewReport(reportJob, start, o.Now().Sub(start), out), o.logger)

	return &types.BatchResult{
		Success:     true,
		TotalUsers:  out.Total,
		Succeeded:   out.Succeeded,
		Failed:      out.Failed,
		FailedUsers: out.FailedUsers,
	}, nil
}

func (o *Orchestrator) publish(ctx context.Context, uid string, updatedAt time.Time) {
	if o.publisher == nil {
		return
	}
	e, err := infrapubsub.NewCloudEvent(eventSource, shared.EventTypeAnalyticsUpdated, infrapubsub.UserEvent{UserID: uid, UpdatedAt: updatedAt})
	if err != nil {
		o.logger.Warn("Failed to build analytics event", "user_id", uid, "error", err)
		return
	}
	if _, err := o.publisher.PublishCloudEvent(ctx, shared.TopicAnalyticsUpdated, e); err != nil {
		o.logger.Warn("Failed to publish analytics event", "user_id", uid, "error", err)
	}
}
