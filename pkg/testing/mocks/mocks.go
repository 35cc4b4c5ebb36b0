package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

var (
	_ shared.Database  = (*MockDatabase)(nil)
	_ shared.Publisher = (*MockPublisher)(nil)
	_ shared.BlobStore = (*MockBlobStore)(nil)
)

// --- Mock Database ---
// Unset funcs behave like an empty store. Funcs may be called concurrently.
type MockDatabase struct {
	SetExecutionFunc    func(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecutionFunc func(ctx context.Context, id string, data map[string]interface{}) error

	ListExercisesFunc func(ctx context.Context) ([]*types.ExerciseDefinition, error)

	GetUserProfileFunc   func(ctx context.Context, uid string) (*types.UserProfile, error)
	ListVisibleUsersFunc func(ctx context.Context) ([]*types.UserProfile, error)

	ListResultOwnersFunc     func(ctx context.Context) ([]string, error)
	ListResultPartitionsFunc func(ctx context.Context, uid string) ([]string, error)
	ListPartitionResultsFunc func(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error)

	ListRoutineWorkoutsFunc func(ctx context.Context, uid string) ([]*types.RoutineWorkout, error)
	ListExerciseEntriesFunc func(ctx context.Context, uid string, since time.Time) ([]*types.ExerciseEntry, error)

	CountPostsSinceFunc      func(ctx context.Context, uid string, since time.Time) (int, error)
	ListPostAuthorsSinceFunc func(ctx context.Context, since time.Time) ([]string, error)

	SetUserAnalyticsFunc   func(ctx context.Context, uid string, analytics *types.UserAnalytics) error
	GetRecommendationsFunc func(ctx context.Context, uid string) (*types.RecommendationList, error)
	SetRecommendationsFunc func(ctx context.Context, uid string, list *types.RecommendationList) error
}

func (m *MockDatabase) SetExecution(ctx context.Context, record *types.ExecutionRecord) error {
	if m.SetExecutionFunc != nil {
		return m.SetExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}

func (m *MockDatabase) ListExercises(ctx context.Context) ([]*types.ExerciseDefinition, error) {
	if m.ListExercisesFunc != nil {
		return m.ListExercisesFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabase) GetUserProfile(ctx context.Context, uid string) (*types.UserProfile, error) {
	if m.GetUserProfileFunc != nil {
		return m.GetUserProfileFunc(ctx, uid)
	}
	return nil, apperrors.ErrUserNotFound
}
func (m *MockDatabase) ListVisibleUsers(ctx context.Context) ([]*types.UserProfile, error) {
	if m.ListVisibleUsersFunc != nil {
		return m.ListVisibleUsersFunc(ctx)
	}
	return nil, nil
}

func (m *MockDatabase) ListResultOwners(ctx context.Context) ([]string, error) {
	if m.ListResultOwnersFunc != nil {
		return m.ListResultOwnersFunc(ctx)
	}
	return nil, nil
}
func (m *MockDatabase) ListResultPartitions(ctx context.Context, uid string) ([]string, error) {
	if m.ListResultPartitionsFunc != nil {
		return m.ListResultPartitionsFunc(ctx, uid)
	}
	return nil, nil
}
func (m *MockDatabase) ListPartitionResults(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error) {
	if m.ListPartitionResultsFunc != nil {
		return m.ListPartitionResultsFunc(ctx, uid, partition, from, to)
	}
	return nil, nil
}

func (m *MockDatabase) ListRoutineWorkouts(ctx context.Context, uid string) ([]*types.RoutineWorkout, error) {
	if m.ListRoutineWorkoutsFunc != nil {
		return m.ListRoutineWorkoutsFunc(ctx, uid)
	}
	return nil, nil
}
func (m *MockDatabase) ListExerciseEntries(ctx context.Context, uid string, since time.Time) ([]*types.ExerciseEntry, error) {
	if m.ListExerciseEntriesFunc != nil {
		return m.ListExerciseEntriesFunc(ctx, uid, since)
	}
	return nil, nil
}

func (m *MockDatabase) CountPostsSince(ctx context.Context, uid string, since time.Time) (int, error) {
	if m.CountPostsSinceFunc != nil {
		return m.CountPostsSinceFunc(ctx, uid, since)
	}
	return 0, nil
}
func (m *MockDatabase) ListPostAuthorsSince(ctx context.Context, since time.Time) ([]string, error) {
	if m.ListPostAuthorsSinceFunc != nil {
		return m.ListPostAuthorsSinceFunc(ctx, since)
	}
	return nil, nil
}

func (m *MockDatabase) SetUserAnalytics(ctx context.Context, uid string, analytics *types.UserAnalytics) error {
	if m.SetUserAnalyticsFunc != nil {
		return m.SetUserAnalyticsFunc(ctx, uid, analytics)
	}
	return nil
}
func (m *MockDatabase) GetRecommendations(ctx context.Context, uid string) (*types.RecommendationList, error) {
	if m.GetRecommendationsFunc != nil {
		return m.GetRecommendationsFunc(ctx, uid)
	}
	return nil, nil
}
func (m *MockDatabase) SetRecommendations(ctx context.Context, uid string, list *types.RecommendationList) error {
	if m.SetRecommendationsFunc != nil {
		return m.SetRecommendationsFunc(ctx, uid, list)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)

	mu        sync.Mutex
	Published []PublishedEvent
}

type PublishedEvent struct {
	Topic string
	Event event.Event
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	m.mu.Lock()
	m.Published = append(m.Published, PublishedEvent{Topic: topic, Event: e})
	m.mu.Unlock()
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}

// Events returns a snapshot of everything published so far.
func (m *MockPublisher) Events() []PublishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]PublishedEvent(nil), m.Published...)
}

// --- Mock Storage ---
type MockBlobStore struct {
	WriteFunc func(ctx context.Context, bucket, object string, data []byte) error
}

func (m *MockBlobStore) Write(ctx context.Context, bucket, object string, data []byte) error {
	if m.WriteFunc != nil {
		return m.WriteFunc(ctx, bucket, object, data)
	}
	return nil
}
