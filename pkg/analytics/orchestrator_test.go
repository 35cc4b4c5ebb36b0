package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	"github.com/fitsocial/fitsocial-server/pkg/batch"
	"github.com/fitsocial/fitsocial-server/pkg/testing/mocks"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

func TestMain(m *testing.M) {
	// The Pub/Sub client's opencensus dependency starts a worker at init
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

// fakeStore serves results from a single monthly partition per user and
// records analytics writes.
type fakeStore struct {
	mu      sync.Mutex
	results map[string][]*types.WorkoutResult
	written map[string]*types.UserAnalytics
}

func newFakeStore(results map[string][]*types.WorkoutResult) (*fakeStore, *mocks.MockDatabase) {
	s := &fakeStore{results: results, written: make(map[string]*types.UserAnalytics)}
	db := &mocks.MockDatabase{
		ListResultOwnersFunc: func(ctx context.Context) ([]string, error) {
			var owners []string
			for uid := range s.results {
				owners = append(owners, uid)
			}
			return owners, nil
		},
		ListResultPartitionsFunc: func(ctx context.Context, uid string) ([]string, error) {
			if uid == "broken" {
				return nil, errors.New("deadline exceeded")
			}
			return []string{"2024-01", "2024-02", "2024-03"}, nil
		},
		ListPartitionResultsFunc: func(ctx context.Context, uid, partition string, from, to time.Time) ([]*types.WorkoutResult, error) {
			var out []*types.WorkoutResult
			for _, r := range s.results[uid] {
				if r.CreatedAt.Format("2006-01") == partition && !r.CreatedAt.Before(from) && !r.CreatedAt.After(to) {
					out = append(out, r)
				}
			}
			return out, nil
		},
		GetUserProfileFunc: func(ctx context.Context, uid string) (*types.UserProfile, error) {
			return &types.UserProfile{UID: uid}, nil
		},
		SetUserAnalyticsFunc: func(ctx context.Context, uid string, a *types.UserAnalytics) error {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.written[uid] = a
			return nil
		},
	}
	return s, db
}

func newTestOrchestrator(db shared.Database, pub shared.Publisher, blobs shared.BlobStore, cfg Config) *Orchestrator {
	o := NewOrchestrator(db, resolverFunc(func(string) string { return "chest" }), pub, blobs, cfg, nil)
	o.Now = func() time.Time { return at(wednesday) }
	return o
}

func TestUpdateUserAnalytics_NoData(t *testing.T) {
	store, db := newFakeStore(map[string][]*types.WorkoutResult{
		"u1": {resultAt("2023-10-01T08:00:00Z", exercise("Bench Press"))}, // older than 90 days
	})
	pub := &mocks.MockPublisher{}
	o := newTestOrchestrator(db, pub, nil, Config{})

	got := o.UpdateUserAnalytics(context.Background(), "u1")
	assert.Equal(t, Result{Success: false, Message: "No workout data available for analysis"}, got)
	assert.Empty(t, store.written)
	assert.Empty(t, pub.Events())
}

func TestUpdateUserAnalytics_MissingUserID(t *testing.T) {
	_, db := newFakeStore(nil)
	got := newTestOrchestrator(db, nil, nil, Config{}).UpdateUserAnalytics(context.Background(), "")
	assert.False(t, got.Success)
	assert.NotEmpty(t, got.Error)
}

func TestUpdateUserAnalytics_WritesAndPublishes(t *testing.T) {
	store, db := newFakeStore(map[string][]*types.WorkoutResult{
		"u1": {
			resultAt("2024-03-04T08:00:00Z", exercise("Bench Press", types.SetResult{Reps: 5, Weight: 80})),
			resultAt("2024-02-12T08:00:00Z", exercise("Bench Press", types.SetResult{Reps: 5, Weight: 75})),
		},
	})
	db.ListRoutineWorkoutsFunc = routines("Monday")
	pub := &mocks.MockPublisher{}
	o := newTestOrchestrator(db, pub, nil, Config{})

	got := o.UpdateUserAnalytics(context.Background(), "u1")
	require.True(t, got.Success, got.Error)
	require.NotNil(t, got.Data)

	assert.Equal(t, map[string]int{"chest": 100}, got.Data.Distribution)
	assert.Equal(t, types.Adherence{ThisWeek: 100, ThisMonth: 25}, got.Data.Adherence)
	assert.Equal(t, map[string]float64{"bench press": 80}, got.Data.OneRepMax)
	assert.Equal(t, []types.FavoriteExercise{{Name: "Bench Press", AvgReps: 5, AvgWeight: 77.5}}, got.Data.FavoriteExercises)
	assert.Equal(t, types.FollowingComparison{User: 1}, got.Data.FollowingComparison)
	assert.Equal(t, at(wednesday), got.Data.UpdatedAt)

	assert.Same(t, got.Data, store.written["u1"])

	events := pub.Events()
	require.Len(t, events, 1)
	assert.Equal(t, shared.TopicAnalyticsUpdated, events[0].Topic)
	assert.Equal(t, shared.EventTypeAnalyticsUpdated, events[0].Event.Type())
}

func TestUpdateUserAnalytics_PublishFailureIsNotFatal(t *testing.T) {
	_, db := newFakeStore(map[string][]*types.WorkoutResult{
		"u1": {resultAt("2024-03-04T08:00:00Z", exercise("Bench Press"))},
	})
	pub := &mocks.MockPublisher{
		PublishCloudEventFunc: func(ctx context.Context, topic string, e event.Event) (string, error) {
			return "", errors.New("topic missing")
		},
	}
	got := newTestOrchestrator(db, pub, nil, Config{}).UpdateUserAnalytics(context.Background(), "u1")
	assert.True(t, got.Success)
}

func TestUpdateUserAnalytics_FetchErrorIsReported(t *testing.T) {
	store, db := newFakeStore(nil)
	got := newTestOrchestrator(db, nil, nil, Config{}).UpdateUserAnalytics(context.Background(), "broken")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "deadline exceeded")
	assert.Empty(t, store.written)
}

func TestUpdateUserAnalytics_WriteErrorIsReported(t *testing.T) {
	_, db := newFakeStore(map[string][]*types.WorkoutResult{
		"u1": {resultAt("2024-03-04T08:00:00Z", exercise("Bench Press"))},
	})
	db.SetUserAnalyticsFunc = func(ctx context.Context, uid string, a *types.UserAnalytics) error {
		return errors.New("permission denied")
	}
	got := newTestOrchestrator(db, nil, nil, Config{}).UpdateUserAnalytics(context.Background(), "u1")
	assert.False(t, got.Success)
	assert.Contains(t, got.Error, "permission denied")
}

func TestUpdateAllUsersAnalytics_AllSettled(t *testing.T) {
	store, db := newFakeStore(map[string][]*types.WorkoutResult{
		"u1":       {resultAt("2024-03-04T08:00:00Z", exercise("Squat"))},
		"u2":       {resultAt("2024-02-01T08:00:00Z", exercise("Bench Press"))},
		"inactive": {resultAt("2023-01-01T08:00:00Z", exercise("Bench Press"))},
		"fails":    {resultAt("2024-03-05T08:00:00Z", exercise("Row"))},
	})
	db.SetUserAnalyticsFunc = func(ctx context.Context, uid string, a *types.UserAnalytics) error {
		if uid == "fails" {
			return errors.New("quota exceeded")
		}
		store.mu.Lock()
		defer store.mu.Unlock()
		store.written[uid] = a
		return nil
	}

	var reportObject string
	var report batch.Report
	blobs := &mocks.MockBlobStore{
		WriteFunc: func(ctx context.Context, bucket, object string, data []byte) error {
			reportObject = object
			return json.Unmarshal(data, &report)
		},
	}
	o := newTestOrchestrator(db, nil, blobs, Config{Concurrency: 2, ReportBucket: "artifacts"})

	got, err := o.UpdateAllUsersAnalytics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &types.BatchResult{Success: true, TotalUsers: 3, Succeeded: 2, Failed: 1, FailedUsers: []string{"fails"}}, got)
	assert.Len(t, store.written, 2)
	assert.Contains(t, store.written, "u1")
	assert.Contains(t, store.written, "u2")

	assert.Equal(t, "reports/analytics/2024-03-06T12:00:00Z.json", reportObject)
	assert.Equal(t, 3, report.TotalUsers)
	assert.Equal(t, []string{"fails"}, report.FailedUsers)
}

func TestUpdateAllUsersAnalytics_OwnerScanFailure(t *testing.T) {
	db := &mocks.MockDatabase{
		ListResultOwnersFunc: func(ctx context.Context) ([]string, error) {
			return nil, errors.New("unavailable")
		},
	}
	got, err := newTestOrchestrator(db, nil, nil, Config{}).UpdateAllUsersAnalytics(context.Background())
	require.Error(t, err)
	assert.False(t, got.Success)
}
