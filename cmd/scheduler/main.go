package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/fitsocial/fitsocial-server/pkg/bootstrap"
	"github.com/fitsocial/fitsocial-server/pkg/scheduler"
)

func main() {
	once := flag.Bool("once", false, "run every job once and exit")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := bootstrap.NewService(ctx)
	if err != nil {
		log.Fatalf("bootstrap: %v", err)
	}
	logger := svc.Logger()

	s := scheduler.New(svc.Config.ScheduleLocation(), logger)
	if err := s.Register(ctx, "analytics", svc.Config.AnalyticsSchedule, svc.Analytics.UpdateAllUsersAnalytics); err != nil {
		log.Fatalf("scheduler: %v", err)
	}
	if err := s.Register(ctx, "recommendations", svc.Config.RecommendationSchedule, svc.Recommendations.UpdateAllRecommendations); err != nil {
		log.Fatalf("scheduler: %v", err)
	}

	if *once {
		if err := s.RunAll(ctx); err != nil {
			log.Fatalf("run: %v", err)
		}
		return
	}

	s.Start()
	logger.Info("Scheduler running", "jobs", s.Len(), "timezone", svc.Config.ScheduleTimezone)
	<-ctx.Done()

	logger.Info("Shutting down scheduler")
	s.Stop()
}
