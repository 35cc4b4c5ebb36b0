package recommendations

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
	functions.HTTP("GetUserRecommendations", GetUserRecommendations)
	functions.HTTP("ForceUpdateRecommendations", ForceUpdateRecommendations)
	functions.CloudEvent("ScheduledRecommendationUpdate", ScheduledRecommendationUpdate)
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

// GetUserRecommendations serves the cached list, refreshing it when stale
func GetUserRecommendations(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("recommendations-get", svc, getHandler)(w, r)
}

func getHandler(ctx context.Context, req *framework.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if req.UserID == "" {
		return nil, apperrors.ErrValidation.WithMessage("userId is required")
	}
	res := fwCtx.Service.Recommendations.GetUserRecommendations(ctx, req.UserID)
	if !res.Success {
		fwCtx.Logger.Warn("Recommendations unavailable", "error", res.Error)
	}
	return res, nil
}

// ForceUpdateRecommendations recomputes the list regardless of cache age
func ForceUpdateRecommendations(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("service init failed: %v", err), http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("recommendations-force", svc, forceHandler)(w, r)
}

func forceHandler(ctx context.Context, req *framework.Request, fwCtx *framework.FrameworkContext) (interface{}, error) {
	if req.UserID == "" {
		return nil, apperrors.ErrValidation.WithMessage("userId is required")
	}
	res := fwCtx.Service.Recommendations.ForceUpdateRecommendations(ctx, req.UserID)
	if !res.Success {
		fwCtx.Logger.Warn("Recommendations not updated", "error", res.Error)
	}
	return res, nil
}

// ScheduledRecommendationUpdate is triggered daily by Cloud Scheduler via Pub/Sub
func ScheduledRecommendationUpdate(ctx context.Context, e event.Event) error {
	svc, err := initService(ctx)
	if err != nil {
		return fmt.Errorf("service init failed: %v", err)
	}
	return framework.WrapCloudEvent("recommendations-scheduled", svc, scheduledHandler)(ctx, e)
}

func scheduledHandler(ctx context.Context, e event.Event, fwCtx *framework.FrameworkContext) (interface{}, error) {
	res, err := fwCtx.Service.Recommendations.UpdateAllRecommendations(ctx)
	if err != nil {
		return res, err
	}
	fwCtx.Logger.Info("Scheduled recommendation update finished",
		"total", res.TotalUsers, "succeeded", res.Succeeded, "failed", res.Failed)
	return res, nil
}
