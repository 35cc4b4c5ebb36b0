package recommendation

import (
	"context"
	"log/slog"
	"time"

	"github.com/fitsocial/fitsocial-server/pkg/types"
)

const (
	SimilarityWindow = 30 * 24 * time.Hour
	ActivityWindow   = 7 * 24 * time.Hour

	MaxSimilarity = 50
	MaxNetwork    = 30
	MaxActivity   = 20

	sameTypePoints   = 10
	samePartPoints   = 5
	connectionPoints = 10
	recentPostPoints = 5
)

// ScoreStore is what candidate scoring reads.
type ScoreStore interface {
	GetUserProfile(ctx context.Context, uid string) (*types.UserProfile, error)
	ListExerciseEntries(ctx context.Context, uid string, since time.Time) ([]*types.ExerciseEntry, error)
	CountPostsSince(ctx context.Context, uid string, since time.Time) (int, error)
}

// Breakdown holds the capped sub-scores of one candidate.
type Breakdown struct {
	Similarity int
	Network    int
	Activity   int
}

func (b Breakdown) Total() int {
	return b.Similarity + b.Network + b.Activity
}

type Scorer struct {
	store  ScoreStore
	logger *slog.Logger

	// Now is the clock; overridable in tests.
	Now func() time.Time
}

func NewScorer(store ScoreStore, logger *slog.Logger) *Scorer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{store: store, logger: logger, Now: time.Now}
}

// Score rates how good a suggestion candidateID is for userID, from 0 to 100.
// A sub-score whose inputs cannot be read contributes 0.
func (s *Scorer) Score(ctx context.Context, userID, candidateID string) int {
	now := s.Now()
	user, err := s.store.GetUserProfile(ctx, userID)
	if err != nil {
		s.logger.Warn("Scoring without user profile", "user_id", userID, "error", err)
		user = &types.UserProfile{UID: userID}
	}
	candidate, err := s.store.GetUserProfile(ctx, candidateID)
	if err != nil {
		s.logger.Warn("Scoring without candidate profile", "candidate_id", candidateID, "error", err)
		candidate = &types.UserProfile{UID: candidateID}
	}
	userEntries, ok := s.entries(ctx, userID, now)
	return s.score(ctx, user, userEntries, ok, candidate, now).Total()
}

// entries reports false when the user's entries could not be read.
func (s *Scorer) entries(ctx context.Context, uid string, now time.Time) ([]*types.ExerciseEntry, bool) {
	entries, err := s.store.ListExerciseEntries(ctx, uid, now.Add(-SimilarityWindow))
	if err != nil {
		s.logger.Warn("Exercise entries unavailable, similarity scores as zero", "user_id", uid, "error", err)
		return nil, false
	}
	return entries, true
}

// score rates one candidate given the already loaded user side.
func (s *Scorer) score(ctx context.Context, user *types.UserProfile, userEntries []*types.ExerciseEntry, haveUserEntries bool, candidate *types.UserProfile, now time.Time) Breakdown {
	var b Breakdown
	if haveUserEntries {
		if candEntries, ok := s.entries(ctx, candidate.UID, now); ok {
			b.Similarity = SimilarityScore(userEntries, candEntries)
		}
	}
	b.Network = NetworkScore(user, candidate)

	posts, err := s.store.CountPostsSince(ctx, candidate.UID, now.Add(-ActivityWindow))
	if err != nil {
		s.logger.Warn("Post count unavailable, activity scores as zero", "candidate_id", candidate.UID, "error", err)
	} else {
		b.Activity = ActivityScore(posts)
	}
	return b
}

// SimilarityScore compares every pair of entries. A pair with the same
// exercise type earns type points; otherwise a shared body part earns part
// points. Repeated entries count again.
func SimilarityScore(userEntries, candidateEntries []*types.ExerciseEntry) int {
	score := 0
	for _, u := range userEntries {
		if u == nil {
			continue
		}
		for _, c := range candidateEntries {
			if c == nil {
				continue
			}
			switch {
			case u.ExerciseType != "" && u.ExerciseType == c.ExerciseType:
				score += sameTypePoints
			case u.BodyPart != "" && u.BodyPart == c.BodyPart:
				score += samePartPoints
			}
			if score >= MaxSimilarity {
				return MaxSimilarity
			}
		}
	}
	return score
}

// NetworkScore counts distinct ids both users follow or are followed by.
func NetworkScore(user, candidate *types.UserProfile) int {
	common := make(map[string]struct{})
	intersect(user.Following, candidate.Following, common)
	intersect(user.Followers, candidate.Followers, common)
	return min(len(common)*connectionPoints, MaxNetwork)
}

func ActivityScore(recentPosts int) int {
	if recentPosts <= 0 {
		return 0
	}
	return min(recentPosts*recentPostPoints, MaxActivity)
}

func intersect(a, b []string, into map[string]struct{}) {
	set := make(map[string]struct{}, len(a))
	for _, id := range a {
		if id != "" {
			set[id] = struct{}{}
		}
	}
	for _, id := range b {
		if _, ok := set[id]; ok {
			into[id] = struct{}{}
		}
	}
}
