package framework

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitsocial/fitsocial-server/pkg/bootstrap"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	"github.com/fitsocial/fitsocial-server/pkg/execution"
	"github.com/fitsocial/fitsocial-server/pkg/types"
)

const (
	pubsubEventType = "google.cloud.pubsub.topic.v1.messagePublished"
	maxBodyBytes    = 1 << 20
)

// FrameworkContext carries per-invocation dependencies into a handler
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// CloudEventHandler is the signature for an event-triggered function body.
// It returns outputs (for the execution log) and an error.
type CloudEventHandler func(ctx context.Context, e event.Event, fwCtx *FrameworkContext) (interface{}, error)

// Request is the body accepted by the HTTP functions. Callable clients wrap
// it in a "data" object; both shapes are accepted.
type Request struct {
	UserID string `json:"userId"`
}

// HTTPHandler is the signature for an HTTP function body. The returned value
// is written as the JSON response.
type HTTPHandler func(ctx context.Context, req *Request, fwCtx *FrameworkContext) (interface{}, error)

// WrapCloudEvent wraps a handler with automatic execution logging. Pub/Sub
// envelopes that carry a CloudEvent are unwrapped before the handler runs.
// Only retryable failures are returned to the runtime for redelivery; the
// rest are logged and acknowledged.
func WrapCloudEvent(serviceName string, svc *bootstrap.Service, handler CloudEventHandler) func(context.Context, event.Event) error {
	return func(ctx context.Context, e event.Event) error {
		logger := svc.Logger().With("service", serviceName)

		execID, err := execution.LogPending(ctx, svc.DB, serviceName, execution.ExecutionOptions{
			TriggerType: "pubsub",
		})
		if err != nil {
			// Continue anyway - don't fail the function just because logging failed
			logger.Error("Failed to log execution pending", "error", err)
		}
		logger = logger.With("execution_id", execID)

		inner := unwrapPubSub(e)
		if err := execution.LogStart(ctx, svc.DB, execID, json.RawMessage(eventInputs(inner)), nil); err != nil {
			logger.Warn("Failed to log execution start", "error", err)
		}
		logger.Info("Function started", "event_type", inner.Type(), "event_id", inner.ID())

		fwCtx := &FrameworkContext{Service: svc, Logger: logger, ExecutionID: execID}
		outputs, handlerErr := handler(ctx, inner, fwCtx)
		handlerErr = classify(handlerErr)
		finish(ctx, svc, logger, execID, outputs, handlerErr)
		return deliveryResult(logger, handlerErr)
	}
}

// WrapHTTP wraps an HTTP handler with request parsing, execution logging and
// JSON responses. Validation errors answer 400, other errors 500.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HTTPHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := svc.Logger().With("service", serviceName)

		req, err := parseRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}

		execID, err := execution.LogPending(ctx, svc.DB, serviceName, execution.ExecutionOptions{
			UserID:      req.UserID,
			TriggerType: "http",
			Inputs:      req,
		})
		if err != nil {
			logger.Error("Failed to log execution pending", "error", err)
		}
		logger = logger.With("execution_id", execID)
		if req.UserID != "" {
			logger = logger.With("user_id", req.UserID)
		}
		if err := execution.LogStart(ctx, svc.DB, execID, nil, nil); err != nil {
			logger.Warn("Failed to log execution start", "error", err)
		}
		logger.Info("Function started")

		fwCtx := &FrameworkContext{Service: svc, Logger: logger, ExecutionID: execID}
		outputs, handlerErr := handler(ctx, req, fwCtx)
		finish(ctx, svc, logger, execID, outputs, handlerErr)

		switch {
		case handlerErr == nil:
			writeJSON(w, http.StatusOK, outputs)
		case errors.Is(handlerErr, apperrors.ErrValidation):
			writeJSON(w, http.StatusBadRequest, errorBody(handlerErr))
		default:
			writeJSON(w, http.StatusInternalServerError, errorBody(handlerErr))
		}
	}
}

// classify marks deadline overruns as timeouts so they are redelivered.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var appErr *apperrors.AppError
	if !errors.As(err, &appErr) && errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrTimeout.WithCause(err)
	}
	return err
}

func deliveryResult(logger *slog.Logger, err error) error {
	if err == nil || apperrors.IsRetryable(err) {
		return err
	}
	logger.Warn("Acknowledging non-retryable failure", "error", err, "code", apperrors.GetCode(err))
	return nil
}

func finish(ctx context.Context, svc *bootstrap.Service, logger *slog.Logger, execID string, outputs interface{}, handlerErr error) {
	if handlerErr != nil {
		logger.Error("Function failed", "error", handlerErr, "code", apperrors.GetCode(handlerErr))
		if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr, outputs); logErr != nil {
			logger.Warn("Failed to log execution failure", "error", logErr)
		}
		return
	}
	logger.Info("Function completed successfully")
	if logErr := execution.LogSuccess(ctx, svc.DB, execID, outputs); logErr != nil {
		logger.Warn("Failed to log execution success", "error", logErr)
	}
}

// unwrapPubSub returns the CloudEvent carried inside a Pub/Sub push, or e
// itself when the message holds anything else (e.g. a scheduler payload).
func unwrapPubSub(e event.Event) event.Event {
	if e.Type() != pubsubEventType {
		return e
	}
	var msg types.PubSubMessage
	if err := json.Unmarshal(e.Data(), &msg); err != nil || len(msg.Message.Data) == 0 {
		return e
	}
	var inner event.Event
	if err := json.Unmarshal(msg.Message.Data, &inner); err != nil || inner.Type() == "" {
		return e
	}
	return inner
}

func eventInputs(e event.Event) []byte {
	inputs, err := json.Marshal(map[string]string{
		"event_id":   e.ID(),
		"event_type": e.Type(),
		"source":     e.Source(),
	})
	if err != nil {
		return nil
	}
	return inputs
}

// parseRequest reads userId from a JSON body ({"userId"} or
// {"data":{"userId"}}), falling back to the query string.
func parseRequest(r *http.Request) (*Request, error) {
	req := &Request{}
	if r.Body != nil && r.Method != http.MethodGet {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			return nil, apperrors.ErrValidation.WithMessage("unreadable request body").WithCause(err)
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			var envelope struct {
				UserID string   `json:"userId"`
				Data   *Request `json:"data"`
			}
			if err := json.Unmarshal(body, &envelope); err != nil {
				return nil, apperrors.ErrValidation.WithMessage("request body must be JSON").WithCause(err)
			}
			req.UserID = envelope.UserID
			if req.UserID == "" && envelope.Data != nil {
				req.UserID = envelope.Data.UserID
			}
		}
	}
	if req.UserID == "" {
		req.UserID = r.URL.Query().Get("userId")
	}
	req.UserID = strings.TrimSpace(req.UserID)
	return req, nil
}

func errorBody(err error) map[string]interface{} {
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	return map[string]interface{}{"success": false, "error": msg}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Warn("Failed to write response", "error", err)
	}
}
