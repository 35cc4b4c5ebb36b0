package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitsocial/fitsocial-server/pkg/bootstrap"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	"github.com/fitsocial/fitsocial-server/pkg/testing/mocks"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

// statusRecorder collects the execution statuses written through the mock DB
func statusRecorder(t *testing.T) (*mocks.MockDatabase, *[]types.ExecutionStatus) {
	t.Helper()
	var statuses []types.ExecutionStatus
	db := &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *types.ExecutionRecord) error {
			statuses = append(statuses, record.Status)
			return nil
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			if s, ok := data["status"].(int32); ok {
				statuses = append(statuses, types.ExecutionStatus(s))
			}
			return nil
		},
	}
	return db, &statuses
}

func assertStatuses(t *testing.T, got []types.ExecutionStatus, want ...types.ExecutionStatus) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected statuses %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Status %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestWrapCloudEvent(t *testing.T) {
	db, statuses := statusRecorder(t)
	svc := &bootstrap.Service{DB: db}

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if fwCtx.Service != svc {
			t.Error("Service not injected correctly")
		}
		if !strings.HasPrefix(fwCtx.ExecutionID, "test-service-") {
			t.Errorf("Unexpected execution id %q", fwCtx.ExecutionID)
		}
		return "ok", nil
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	e := event.New()
	e.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	e.SetSource("test-source")

	if err := wrapped(context.Background(), e); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
	assertStatuses(t, *statuses, types.ExecutionStatusPending, types.ExecutionStatusStarted, types.ExecutionStatusSuccess)
}

func TestWrapCloudEvent_Failure(t *testing.T) {
	tests := []struct {
		name       string
		handlerErr error
		wantErr    error
	}{
		{name: "retryable storage error is redelivered", handlerErr: apperrors.ErrStorageError.WithCause(errors.New("unavailable")), wantErr: apperrors.ErrStorageError},
		{name: "deadline is redelivered as timeout", handlerErr: fmt.Errorf("list owners: %w", context.DeadlineExceeded), wantErr: apperrors.ErrTimeout},
		{name: "validation error is acknowledged", handlerErr: apperrors.ErrValidation.WithMessage("bad payload")},
		{name: "plain error is acknowledged", handlerErr: errors.New("simulated error")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, statuses := statusRecorder(t)
			svc := &bootstrap.Service{DB: db}

			wrapped := WrapCloudEvent("test-service", svc, func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
				return nil, tt.handlerErr
			})

			err := wrapped(context.Background(), event.New())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Expected failure to be acknowledged, got %v", err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("Expected %v, got %v", tt.wantErr, err)
			}
			assertStatuses(t, *statuses, types.ExecutionStatusPending, types.ExecutionStatusStarted, types.ExecutionStatusFailed)
		})
	}
}

func TestWrapCloudEvent_ExecutionLogFailureDoesNotFail(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{
		SetExecutionFunc: func(ctx context.Context, record *types.ExecutionRecord) error {
			return errors.New("firestore down")
		},
		UpdateExecutionFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			return errors.New("firestore down")
		},
	}}

	called := false
	wrapped := WrapCloudEvent("test-service", svc, func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		called = true
		return nil, nil
	})

	if err := wrapped(context.Background(), event.New()); err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if !called {
		t.Error("Handler was not called")
	}
}

func TestWrapCloudEvent_UnwrapsNestedEvent(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}

	expectedID := "inner-event-123"
	expectedType := "com.fitsocial.analytics.updated"

	handler := func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if e.ID() != expectedID {
			t.Errorf("Expected event ID %s, got %s", expectedID, e.ID())
		}
		if e.Type() != expectedType {
			t.Errorf("Expected event type %s, got %s", expectedType, e.Type())
		}
		return "ok", nil
	}

	wrapped := WrapCloudEvent("test-service", svc, handler)

	inner := event.New()
	inner.SetID(expectedID)
	inner.SetType(expectedType)
	inner.SetSource("/test/source")
	if err := inner.SetData(event.ApplicationJSON, map[string]string{"userId": "u1"}); err != nil {
		t.Fatal(err)
	}
	innerBytes, err := json.Marshal(inner)
	if err != nil {
		t.Fatal(err)
	}

	var psMsg types.PubSubMessage
	psMsg.Message.Data = innerBytes

	outer := event.New()
	outer.SetID("outer-msg-id")
	outer.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	outer.SetSource("//pubsub")
	if err := outer.SetData(event.ApplicationJSON, psMsg); err != nil {
		t.Fatal(err)
	}

	if err := wrapped(context.Background(), outer); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
}

func TestWrapCloudEvent_SchedulerPayloadNotUnwrapped(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}

	var psMsg types.PubSubMessage
	psMsg.Message.Data = []byte(`{"job":"analytics"}`)

	outer := event.New()
	outer.SetID("scheduler-msg")
	outer.SetType("google.cloud.pubsub.topic.v1.messagePublished")
	outer.SetSource("//pubsub")
	if err := outer.SetData(event.ApplicationJSON, psMsg); err != nil {
		t.Fatal(err)
	}

	wrapped := WrapCloudEvent("test-service", svc, func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error) {
		if e.ID() != "scheduler-msg" {
			t.Errorf("Expected outer event, got %s", e.ID())
		}
		return nil, nil
	})

	if err := wrapped(context.Background(), outer); err != nil {
		t.Fatalf("Handler failed: %v", err)
	}
}

func TestWrapHTTP(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		handlerErr error
		wantStatus int
		wantUserID string
		wantCalled bool
	}{
		{name: "plain body", method: http.MethodPost, target: "/", body: `{"userId":"u1"}`, wantStatus: http.StatusOK, wantUserID: "u1", wantCalled: true},
		{name: "data envelope", method: http.MethodPost, target: "/", body: `{"data":{"userId":"u2"}}`, wantStatus: http.StatusOK, wantUserID: "u2", wantCalled: true},
		{name: "query string", method: http.MethodGet, target: "/?userId=u3", wantStatus: http.StatusOK, wantUserID: "u3", wantCalled: true},
		{name: "bad json", method: http.MethodPost, target: "/", body: `{not json`, wantStatus: http.StatusBadRequest},
		{name: "validation error", method: http.MethodPost, target: "/", body: `{}`, handlerErr: apperrors.ErrValidation.WithMessage("userId is required"), wantStatus: http.StatusBadRequest, wantCalled: true},
		{name: "internal error", method: http.MethodPost, target: "/", body: `{"userId":"u4"}`, handlerErr: errors.New("boom"), wantStatus: http.StatusInternalServerError, wantUserID: "u4", wantCalled: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}
			called := false
			h := WrapHTTP("test-http", svc, func(ctx context.Context, req *Request, fwCtx *FrameworkContext) (interface{}, error) {
				called = true
				if req.UserID != tt.wantUserID {
					t.Errorf("Expected userId %q, got %q", tt.wantUserID, req.UserID)
				}
				if tt.handlerErr != nil {
					return nil, tt.handlerErr
				}
				return map[string]interface{}{"success": true}, nil
			})

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.target, strings.NewReader(tt.body)))

			if rec.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if called != tt.wantCalled {
				t.Errorf("Expected handler called=%v, got %v", tt.wantCalled, called)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Unexpected content type %q", ct)
			}

			var body map[string]interface{}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("Response is not JSON: %v", err)
			}
			if tt.wantStatus != http.StatusOK && body["success"] != false {
				t.Errorf("Expected success=false, got %v", body["success"])
			}
		})
	}
}

func TestWrapHTTP_ValidationMessage(t *testing.T) {
	svc := &bootstrap.Service{DB: &mocks.MockDatabase{}}
	h := WrapHTTP("test-http", svc, func(ctx context.Context, req *Request, fwCtx *FrameworkContext) (interface{}, error) {
		return nil, apperrors.ErrValidation.WithMessage("userId is required")
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{}`)))

	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["error"] != "userId is required" {
		t.Errorf("Unexpected error message %v", body["error"])
	}
}
