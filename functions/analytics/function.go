package analytics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	"github.com/cloudevents/sdk-go/v2/event"

	"github.com/fitsocial/fitsocial-server/pkg/bootstrap"
	apperrors "github.com/fitsocial/fitsocial-server/pkg/errors"
	"github.com/fitsocial/fitsocial-server/pkg/framework"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("UpdateUserAnalytics", UpdateUserAnalytics)
	functions.HTTP("UpdateAllUsersAnalytics", UpdateAllUsersAnalytics)
	functions.CloudEvent("ScheduledAnalyticsUpdate", ScheduledAnalyticsUpdate)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

func serviceUnavailable(w http.ResponseWriter, err error) {
	http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
}

// UpdateUserAnalytics recomputes and stores the caller's analytics document
func UpdateUserAnalytics(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		serviceUnavailable(w, err)
		return
	}
	framework.WrapHTTP("analytics-user", svc, updateUserHandler)(w, r)
}

func updateUserHandler(ctx context.Context, req *framework.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if req.UserID == "" {
		return nil, apperrors.ErrValidation.WithMessage("userId is required")
	}
	res := fwCtx.Service.Analytics.UpdateUserAnalytics(ctx, req.UserID)
	if !res.Success {
		fwCtx.Logger.Warn("Analytics not updated", "message", res.Message, "error", res.Error)
	}
	return res, nil
}

// UpdateAllUsersAnalytics runs the batch on demand
func UpdateAllUsersAnalytics(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		serviceUnavailable(w, err)
		return
	}
	framework.WrapHTTP("analytics-all", svc, updateAllHandler)(w, r)
}

func updateAllHandler(ctx context.Context, req *framework.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	res, err := fwCtx.Service.Analytics.UpdateAllUsersAnalytics(ctx)
	if err != nil {
		fwCtx.Logger.Error("Batch analytics update failed", "error", err)
	}
	return res, nil
}

// ScheduledAnalyticsUpdate is triggered daily by Cloud Scheduler via Pub/Sub
func ScheduledAnalyticsUpdate(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("analytics-scheduled", svc, scheduledHandler)(ctx, e)
}

func scheduledHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	res, err := fwCtx.Service.Analytics.UpdateAllUsersAnalytics(ctx)
	if err != nil {
		return res, err
	}
	fwCtx.Logger.Info("Scheduled analytics update finished",
		"total", res.TotalUsers, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}
