// Package recommendation scores other users as follow suggestions and serves
// the per-user suggestion list from a time-based cache.
package recommendation

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	"github.com/fitsocial/fitsocial-server/pkg/batch"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	infrapubsub "github.com/fitsocial/fitsocial-server/pkg/infrastructure/pubsub"
	"github.com/fitsocial/fitsocial-server/pkg/types"
	"github.com/fitsocial/fitsocial-server/pkg/workouts"
)

const (
	// DefaultTTL is how long a stored list is served without any checks.
	DefaultTTL = 24 * time.Hour
	// ChangeWindow is how far back the recent changes check looks.
	ChangeWindow = 24 * time.Hour
	// ActiveWindow defines the users refreshed by the daily batch.
	ActiveWindow = 7 * 24 * time.Hour

	MaxRecommendations = 10

	scoringConcurrency = 8
	eventSource        = "/recommendations"
	reportJob          = "recommendations"
)

type Config struct {
	TTL          time.Duration
	Concurrency  int
	ReportBucket string
}

// ListResult is the envelope returned to readers of the list.
type ListResult struct {
	Success         bool                    `json:"success"`
	Recommendations []types.RecommendedUser `json:"recommendations"`
	Error           string                  `json:"error,omitempty"`
}

// UpdateResult is the envelope returned to forced refreshes.
type UpdateResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

type Orchestrator struct {
	db        shared.Database
	publisher shared.Publisher
	blobs     shared.BlobStore
	scorer    *Scorer
	fetcher   *workouts.Fetcher
	cfg       Config
	logger    *slog.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewOrchestrator(db shared.Database, publisher shared.Publisher, blobs shared.BlobStore, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "recommendation")
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = batch.DefaultConcurrency
	}
	o := &Orchestrator{
		db:        db,
		publisher: publisher,
		blobs:     blobs,
		scorer:    NewScorer(db, logger),
		fetcher:   workouts.NewFetcher(db, logger),
		cfg:       cfg,
		logger:    logger,
		Now:       time.Now,
	}
	o.scorer.Now = func() time.Time { return o.Now() }
	return o
}

// GetRecommendationsForUser serves the stored list while it is fresh. Once it
// is stale the list is recomputed only if the user changed recently;
// otherwise the stale list is served as is. A user without a stored list is
// always computed.
func (o *Orchestrator) GetRecommendationsForUser(ctx context.Context, uid string) ([]types.RecommendedUser, error) {
	now := o.Now()
	cached, err := o.db.GetRecommendations(ctx, uid)
	if err != nil {
		return nil, apperrors.ErrStorageError.WithMessage("failed to read recommendations").WithCause(err)
	}

	if cached != nil && now.Sub(cached.UpdatedAt) < o.cfg.TTL {
		return cached.RecommendedUsers, nil
	}

	if cached == nil {
		o.logger.Info("No stored recommendations, computing", "user_id", uid)
	} else if o.hasRecentChanges(ctx, uid, now) {
		o.logger.Info("Stale recommendations with recent changes, recomputing", "user_id", uid)
	} else {
		o.logger.Debug("Serving stale recommendations, no recent changes", "user_id", uid)
		return cached.RecommendedUsers, nil
	}

	list, err := o.UpdateRecommendationsForUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	return list.RecommendedUsers, nil
}

// hasRecentChanges reports whether uid changed who they follow or logged a
// workout within ChangeWindow. Read errors count as no change.
func (o *Orchestrator) hasRecentChanges(ctx context.Context, uid string, now time.Time) bool {
	since := now.Add(-ChangeWindow)

	profile, err := o.db.GetUserProfile(ctx, uid)
	if err != nil {
		o.logger.Warn("Recent changes check failed, assuming none", "user_id", uid, "error", err)
		return false
	}
	if profile.UpdatedAt.After(since) {
		return true
	}

	results, err := o.fetcher.Fetch(ctx, uid, since, now)
	if err != nil {
		o.logger.Warn("Recent changes check failed, assuming none", "user_id", uid, "error", err)
		return false
	}
	return len(results) > 0
}

// UpdateRecommendationsForUser scores every visible user that uid does not
// already follow and stores the best MaxRecommendations. An empty candidate
// pool stores an empty list.
func (o *Orchestrator) UpdateRecommendationsForUser(ctx context.Context, uid string) (*types.RecommendationList, error) {
	now := o.Now()
	user, err := o.db.GetUserProfile(ctx, uid)
	if err != nil {
		return nil, err
	}
	visible, err := o.db.ListVisibleUsers(ctx)
	if err != nil {
		return nil, apperrors.ErrStorageError.WithMessage("failed to list visible users").WithCause(err)
	}

	candidates := Candidates(user, visible)
	list := &types.RecommendationList{
		RecommendedUsers: []types.RecommendedUser{},
		UpdatedAt:        now,
	}
	if len(candidates) > 0 {
		list.RecommendedUsers = o.rank(ctx, user, candidates, now)
	}

	if err := o.db.SetRecommendations(ctx, uid, list); err != nil {
		return nil, apperrors.ErrStorageError.WithMessage("failed to save recommendations").WithCause(err)
	}
	o.logger.Info("Recommendations updated", "user_id", uid, "candidates", len(candidates), "stored", len(list.RecommendedUsers))

	o.publish(ctx, uid, list)
	return list, nil
}

// Candidates returns the visible users other than user and the users they
// follow, without duplicates.
func Candidates(user *types.UserProfile, visible []*types.UserProfile) []*types.UserProfile {
	excluded := map[string]struct{}{user.UID: {}}
	for _, id := range user.Following {
		excluded[id] = struct{}{}
	}
	var out []*types.UserProfile
	for _, p := range visible {
		if p == nil || p.UID == "" || !p.IsVisible() {
			continue
		}
		if _, ok := excluded[p.UID]; ok {
			continue
		}
		excluded[p.UID] = struct{}{}
		out = append(out, p)
	}
	return out
}

func (o *Orchestrator) rank(ctx context.Context, user *types.UserProfile, candidates []*types.UserProfile, now time.Time) []types.RecommendedUser {
	userEntries, haveEntries := o.scorer.entries(ctx, user.UID, now)

	ranked := make([]types.RecommendedUser, len(candidates))
	sem := make(chan struct{}, scoringConcurrency)
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, c *types.UserProfile) {
			defer wg.Done()
			defer func() { <-sem }()
			b := o.scorer.score(ctx, user, userEntries, haveEntries, c, now)
			ranked[idx] = types.RecommendedUser{UserID: c.UID, Score: b.Total()}
		}(i, c)
	}
	wg.Wait()

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > MaxRecommendations {
		ranked = ranked[:MaxRecommendations]
	}
	return ranked
}

// UpdateAllRecommendations refreshes every user who posted or logged a
// workout within ActiveWindow. Users are processed concurrently and
// independently.
func (o *Orchestrator) UpdateAllRecommendations(ctx context.Context) (*types.BatchResult, error) {
	start := o.Now()
	since := start.Add(-ActiveWindow)

	authors, err := o.db.ListPostAuthorsSince(ctx, since)
	if err != nil {
		o.logger.Error("Active author scan failed", "error", err)
		return &types.BatchResult{Success: false}, apperrors.ErrStorageError.WithMessage("failed to list active users").WithCause(err)
	}
	owners, err := o.fetcher.ActiveOwners(ctx, since, start)
	if err != nil {
		o.logger.Error("Active owner scan failed", "error", err)
		return &types.BatchResult{Success: false}, apperrors.ErrStorageError.WithMessage("failed to list active users").WithCause(err)
	}
	users := union(authors, owners)
	o.logger.Info("Starting recommendation batch", "users", len(users))

	out := batch.Run(ctx, users, o.cfg.Concurrency, func(ctx context.Context, uid string) error {
		_, err := o.UpdateRecommendationsForUser(ctx, uid)
		return err
	})
	if out.Err != nil {
		o.logger.Warn("Recommendation batch finished with failures", "failed", out.Failed, "error", out.Err)
	}
	o.logger.Info("Recommendation batch complete", "total", out.Total, "succeeded", out.Succeeded, "failed", out.Failed)

	batch.WriteReport(ctx, o.blobs, o.cfg.ReportBucket, batch.NewReport(reportJob, start, o.Now().Sub(start), out), o.logger)

	return &types.BatchResult{
		Success:     true,
		TotalUsers:  out.Total,
		Succeeded:   out.Succeeded,
		Failed:      out.Failed,
		FailedUsers: out.FailedUsers,
	}, nil
}

// GetUserRecommendations wraps GetRecommendationsForUser in the caller-facing
// envelope.
func (o *Orchestrator) GetUserRecommendations(ctx context.Context, uid string) ListResult {
	if uid == "" {
		return ListResult{Success: false, Recommendations: []types.RecommendedUser{}, Error: "userId is required"}
	}
	recs, err := o.GetRecommendationsForUser(ctx, uid)
	if err != nil {
		o.logger.Error("Recommendation read failed", "user_id", uid, "error", err)
		return ListResult{Success: false, Recommendations: []types.RecommendedUser{}, Error: err.Error()}
	}
	if recs == nil {
		recs = []types.RecommendedUser{}
	}
	return ListResult{Success: true, Recommendations: recs}
}

// ForceUpdateRecommendations recomputes regardless of cache state.
func (o *Orchestrator) ForceUpdateRecommendations(ctx context.Context, uid string) UpdateResult {
	if uid == "" {
		return UpdateResult{Success: false, Error: "userId is required"}
	}
	if _, err := o.UpdateRecommendationsForUser(ctx, uid); err != nil {
		o.logger.Error("Forced recommendation update failed", "user_id", uid, "error", err)
		return UpdateResult{Success: false, Error: err.Error()}
	}
	return UpdateResult{Success: true}
}

func (o *Orchestrator) publish(ctx context.Context, uid string, list *types.RecommendationList) {
	if o.publisher == nil {
		return
	}
	payload := infrapubsub.UserEvent{UserID: uid, UpdatedAt: list.UpdatedAt, Count: len(list.RecommendedUsers)}
	e, err := infrapubsub.NewCloudEvent(eventSource, shared.EventTypeRecommendationsUpdated, payload)
	if err != nil {
		o.logger.Warn("Failed to build recommendations event", "user_id", uid, "error", err)
		return
	}
	if _, err := o.publisher.PublishCloudEvent(ctx, shared.TopicRecommendationsUpdated, e); err != nil {
		o.logger.Warn("Failed to publish recommendations event", "user_id", uid, "error", err)
	}
}

func union(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range lists {
		for _, id := range l {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
