package shared

import (
	"context"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// --- Persistence Interfaces ---

type Database interface {
	// Executions
	SetExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error

	// Reference data
	ListExercises(ctx context.Context) ([]*types.ExerciseDefinition, error)

	// Users
	GetUserProfile(ctx context.Context, uid string) (*types.UserProfile, error)
	ListVisibleUsers(ctx context.Context) ([]*types.UserProfile, error)

	// Workout results, partitioned per user by month
	ListResultOwners(ctx context.Context) ([]string, error)
	ListResultPartitions(ctx context.Context, uid string) ([]string, error)
	ListPartitionResults(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error)

	// Workouts
	ListRoutineWorkouts(ctx context.Context, uid string) ([]*types.RoutineWorkout, error)
	ListExerciseEntries(ctx context.Context, uid string, since time.Time) ([]*types.ExerciseEntry, error)

	// Posts
	CountPostsSince(ctx context.Context, uid string, since time.Time) (int, error)
	ListPostAuthorsSince(ctx context.Context, since time.Time) ([]string, error)

	// Outputs
	SetUserAnalytics(ctx context.Context, uid string, analytics *types.UserAnalytics) error
	GetRecommendations(ctx context.Context, uid string) (*types.RecommendationList, error) // nil, nil when absent
	SetRecommendations(ctx context.Context, uid string, list *types.RecommendationList) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}

// --- Storage Interfaces ---

type BlobStore interface {
	Write(ctx context.Context, bucket, object string, data []byte) error
}
