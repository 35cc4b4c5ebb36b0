package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitsocial/fitsocial-server/pkg/bootstrap"
	"github.com/fitsocial/fitsocial-server/pkg/testing/mocks"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

func testConfig() *bootstrap.Config {
	return &bootstrap.Config{
		ProjectID:         "test-project",
		CatalogTTL:        time.Minute,
		AnalyticsLookback: 90 * 24 * time.Hour,
		RecommendationTTL: 24 * time.Hour,
		BatchConcurrency:  2,
	}
}

// withWorkout returns a mock store holding one recent bench press session for uid
func withWorkout(uid string, saved *[]string) *mocks.MockDatabase {
	now := time.Now()
	return &mocks.MockDatabase{
		ListResultOwnersFunc: func(ctx context.Context) ([]string, error) {
			return []string{uid}, nil
		},
		ListResultPartitionsFunc: func(ctx context.Context, id string) ([]string, error) {
			if id != uid {
				return nil, nil
			}
			return []string{now.Format("2006-01")}, nil
		},
		ListPartitionResultsFunc: func(ctx context.Context, id, partition string, from, to time.Time) ([]*types.WorkoutResult, error) {
			if id != uid {
				return nil, nil
			}
			return []*types.WorkoutResult{{
				ID:        "r1",
				UserID:    uid,
				CreatedAt: now.Add(-time.Minute),
				Exercises: []types.ExerciseResult{{
					ExerciseName: "Bench Press",
					BodyPart:     "Chest",
					Sets:         []types.SetResult{{Reps: 5, Weight: 100}},
				}},
			}}, nil
		},
		SetUserAnalyticsFunc: func(ctx context.Context, id string, a *types.UserAnalytics) error {
			*saved = append(*saved, id)
			return nil
		},
	}
}

func post(t *testing.T, h http.HandlerFunc, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("Response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return rec, out
}

func TestUpdateUserAnalytics(t *testing.T) {
	var saved []string
	svc = bootstrap.Wire(testConfig(), withWorkout("user_a", &saved), &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	rec, body := post(t, UpdateUserAnalytics, `{"data":{"userId":"user_a"}}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["success"] != true {
		t.Errorf("Expected success, got %v", body)
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("Expected data object, got %v", body["data"])
	}
	orm, _ := data["oneRepMax"].(map[string]interface{})
	if orm["bench press"] == nil {
		t.Errorf("Expected bench press 1RM, got %v", data["oneRepMax"])
	}
	if len(saved) != 1 || saved[0] != "user_a" {
		t.Errorf("Expected one analytics write for user_a, got %v", saved)
	}
}

func TestUpdateUserAnalytics_MissingUserID(t *testing.T) {
	svc = bootstrap.Wire(testConfig(), &mocks.MockDatabase{}, &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	rec, body := post(t, UpdateUserAnalytics, `{}`)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if body["success"] != false || body["error"] != "userId is required" {
		t.Errorf("Unexpected body %v", body)
	}
}

func TestUpdateUserAnalytics_NoWorkoutData(t *testing.T) {
	var saved []string
	svc = bootstrap.Wire(testConfig(), withWorkout("someone_else", &saved), &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	rec, body := post(t, UpdateUserAnalytics, `{"userId":"user_empty"}`)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if body["success"] != false {
		t.Errorf("Expected success=false, got %v", body["success"])
	}
	if body["message"] != "No workout data available for analysis" {
		t.Errorf("Unexpected message %v", body["message"])
	}
	if len(saved) != 0 {
		t.Errorf("Expected no writes, got %v", saved)
	}
}

func TestUpdateAllUsersAnalytics(t *testing.T) {
	var saved []string
	svc = bootstrap.Wire(testConfig(), withWorkout("user_a", &saved), &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	rec, body := post(t, UpdateAllUsersAnalytics, ``)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["success"] != true || body["totalUsers"] != float64(1) || body["succeeded"] != float64(1) {
		t.Errorf("Unexpected batch result %v", body)
	}
}

func TestScheduledAnalyticsUpdate(t *testing.T) {
	var saved []string
	svc = bootstrap.Wire(testConfig(), withWorkout("user_a", &saved), &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	var psMsg types.PubSubMessage
	psMsg.Message.Data = []byte(`{"job":"analytics"}`)
	e := event.New()
	e.SetID("evt-scheduled")
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("//pubsub")
	if err := e.SetData(event.ApplicationJSON, psMsg); err != nil {
		t.Fatal(err)
	}

	if err := ScheduledAnalyticsUpdate(context.Background(), e); err != nil {
		t.Fatalf("ScheduledAnalyticsUpdate failed: %v", err)
	}
	if len(saved) != 1 {
		t.Errorf("Expected 1 analytics write, got %d", len(saved))
	}
}

func TestScheduledAnalyticsUpdate_OwnerScanFails(t *testing.T) {
	db := &mocks.MockDatabase{
		ListResultOwnersFunc: func(ctx context.Context) ([]string, error) {
			return nil, errors.New("firestore unavailable")
		},
	}
	svc = bootstrap.Wire(testConfig(), db, &mocks.MockPublisher{}, nil, nil)
	defer func() { svc = nil }()

	if err := ScheduledAnalyticsUpdate(context.Background(), event.New()); err == nil {
		t.Fatal("Expected error when the owner scan fails")
	}
}
