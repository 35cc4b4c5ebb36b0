package types

import "time"

// ExerciseDefinition is immutable reference data from the exercises collection.
type ExerciseDefinition struct {
	Key          string `firestore:"key" json:"key"`
	Name         string `firestore:"name" json:"name"`
	Part         string `firestore:"part" json:"part"`
	DetailedPart string `firestore:"detailedPart" json:"detailedPart"`
}

// SetResult is a single performed set.
type SetResult struct {
	Reps   float64 `firestore:"reps" json:"reps"`
	Weight float64 `firestore:"weight" json:"weight"`
}

// ExerciseResult is one exercise inside a completed session.
type ExerciseResult struct {
	ExerciseName string      `firestore:"exerciseName" json:"exerciseName"`
	BodyPart     string      `firestore:"bodyPart,omitempty" json:"bodyPart,omitempty"`
	Sets         []SetResult `firestore:"sets" json:"sets"`
}

// WorkoutResult is written once per completed session and never mutated.
type WorkoutResult struct {
	ID        string           `firestore:"-" json:"id"`
	UserID    string           `firestore:"userId" json:"userId"`
	CreatedAt time.Time        `firestore:"createdAt" json:"createdAt"`
	Exercises []ExerciseResult `firestore:"exercises" json:"exercises"`
}

// RoutineWorkout defines the expected weekly cadence of a user.
type RoutineWorkout struct {
	ID            string   `firestore:"-" json:"id"`
	UserID        string   `firestore:"userId" json:"userId"`
	IsRoutine     bool     `firestore:"isRoutine" json:"isRoutine"`
	ScheduledDays []string `firestore:"scheduledDays" json:"scheduledDays"`
}

// ExerciseEntry is a logged workout entry used for similarity scoring.
type ExerciseEntry struct {
	UserID       string    `firestore:"userId" json:"userId"`
	ExerciseType string    `firestore:"exerciseType" json:"exerciseType"`
	BodyPart     string    `firestore:"bodyPart" json:"bodyPart"`
	CreatedAt    time.Time `firestore:"createdAt" json:"createdAt"`
}

// Post is a story-equivalent post.
type Post struct {
	ID        string    `firestore:"-" json:"id"`
	UserID    string    `firestore:"userId" json:"userId"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

// UserProfile mirrors the users collection. Field names follow the client.
type UserProfile struct {
	UID        string    `firestore:"uid" json:"uid"`
	Following  []string  `firestore:"Following" json:"following"`
	Followers  []string  `firestore:"Followers" json:"followers"`
	Visibility int       `firestore:"Visibility" json:"visibility"`
	UpdatedAt  time.Time `firestore:"updatedAt" json:"updatedAt"`
}

// IsVisible reports whether the user opted into discovery.
func (p *UserProfile) IsVisible() bool {
	return p.Visibility > 0
}

// --- Outputs ---

type Adherence struct {
	ThisWeek  int `firestore:"thisWeek" json:"thisWeek"`
	ThisMonth int `firestore:"thisMonth" json:"thisMonth"`
}

type FavoriteExercise struct {
	Name      string  `firestore:"name" json:"name"`
	AvgReps   float64 `firestore:"avgReps" json:"avgReps"`
	AvgWeight float64 `firestore:"avgWeight" json:"avgWeight"`
}

type FollowingComparison struct {
	User         int `firestore:"user" json:"user"`
	FollowingAvg int `firestore:"followingAvg" json:"followingAvg"`
}

// UserAnalytics is fully recomputed and overwritten on every run.
type UserAnalytics struct {
	Distribution        map[string]int      `firestore:"distribution" json:"distribution"`
	Adherence           Adherence           `firestore:"adherence" json:"adherence"`
	FavoriteExercises   []FavoriteExercise  `firestore:"favoriteExercises" json:"favoriteExercises"`
	FollowingComparison FollowingComparison `firestore:"followingComparison" json:"followingComparison"`
	OneRepMax           map[string]float64  `firestore:"oneRepMax" json:"oneRepMax"`
	UpdatedAt           time.Time           `firestore:"updatedAt" json:"updatedAt"`
}

type RecommendedUser struct {
	UserID string `firestore:"userId" json:"userId"`
	Score  int    `firestore:"score" json:"score"`
}

// RecommendationList is fully recomputed and overwritten; its validity is a
// function of UpdatedAt only.
type RecommendationList struct {
	RecommendedUsers []RecommendedUser `firestore:"recommendedUsers" json:"recommendedUsers"`
	UpdatedAt        time.Time         `firestore:"updatedAt" json:"updatedAt"`
}

// BatchResult summarises an "update all" run.
type BatchResult struct {
	Success     bool     `json:"success"`
	TotalUsers  int      `json:"totalUsers"`
	Succeeded   int      `json:"succeeded"`
	Failed      int      `json:"failed"`
	FailedUsers []string `json:"-"`
}
