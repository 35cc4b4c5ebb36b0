package analytics

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// SocialWindow is the trailing period compared between a user and the people
// they follow.
const SocialWindow = 7 * 24 * time.Hour

const socialConcurrency = 8

// ResultFetcher reads a user's workout results within a time range.
type ResultFetcher interface {
	Fetch(ctx context.Context, uid string, from, to time.Time) ([]*types.WorkoutResult, error)
}

// ProfileSource reads user profiles.
type ProfileSource interface {
	GetUserProfile(ctx context.Context, uid string) (*types.UserProfile, error)
}

type SocialComparisonCalculator struct {
	profiles ProfileSource
	results  ResultFetcher
	logger   *slog.Logger
}

func NewSocialComparisonCalculator(profiles ProfileSource, results ResultFetcher, logger *slog.Logger) *SocialComparisonCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &SocialComparisonCalculator{profiles: profiles, results: results, logger: logger}
}

// Compute counts the distinct days uid trained in the trailing week and
// averages the same count over followed users who trained at all. It never
// fails; unreadable users count as inactive.
func (c *SocialComparisonCalculator) Compute(ctx context.Context, uid string, now time.Time) types.FollowingComparison {
	from := now.Add(-SocialWindow)
	cmp := types.FollowingComparison{User: c.activeDays(ctx, uid, from, now)}

	profile, err := c.profiles.GetUserProfile(ctx, uid)
	if err != nil {
		c.logger.Warn("Following comparison unavailable, profile fetch failed", "user_id", uid, "error", err)
		return cmp
	}
	following := uniqueIDs(profile.Following, uid)
	if len(following) == 0 {
		return cmp
	}

	counts := make([]int, len(following))
	sem := make(chan struct{}, socialConcurrency)
	var wg sync.WaitGroup
	for i, fid := range following {
		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, fid string) {
			defer wg.Done()
			defer func() { <-sem }()
			counts[idx] = c.activeDays(ctx, fid, from, now)
		}(i, fid)
	}
	wg.Wait()

	sum, active := 0, 0
	for _, n := range counts {
		if n > 0 {
			sum += n
			active++
		}
	}
	if active > 0 {
		cmp.FollowingAvg = int(math.Round(float64(sum) / float64(active)))
	}
	return cmp
}

func (c *SocialComparisonCalculator) activeDays(ctx context.Context, uid string, from, to time.Time) int {
	results, err := c.results.Fetch(ctx, uid, from, to)
	if err != nil {
		c.logger.Warn("Counting as inactive, result fetch failed", "user_id", uid, "error", err)
		return 0
	}
	return len(workoutDates(results, from, to.Add(time.Nanosecond)))
}

// uniqueIDs drops blanks, duplicates and self, keeping order.
func uniqueIDs(ids []string, self string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == self {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
