package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/storage"
	"github.com/spf13/viper"

	shared "github.com/fitsocial/fitsocial-server/pkg"
	"github.com/fitsocial/fitsocial-server/pkg/analytics"
	"github.com/fitsocial/fitsocial-server/pkg/bodypart"
	"github.com/fitsocial/fitsocial-server/pkg/catalog"
	"github.com/fitsocial/fitsocial-server/pkg/infrastructure/database"
	infrapubsub "github.com/fitsocial/fitsocial-server/pkg/infrastructure/pubsub"
	infrastorage "github.com/fitsocial/fitsocial-server/pkg/infrastructure/storage"
	"github.com/fitsocial/fitsocial-server/pkg/recommendation"
)

// Config holds standard configuration for all services
type Config struct {
	ProjectID         string `mapstructure:"google_cloud_project"`
	EnablePublish     bool   `mapstructure:"enable_publish"`
	GCSArtifactBucket string `mapstructure:"gcs_artifact_bucket"`
	LogLevel          string `mapstructure:"log_level"`

	CatalogTTL        time.Duration `mapstructure:"catalog_ttl"`
	AnalyticsLookback time.Duration `mapstructure:"analytics_lookback"`
	RecommendationTTL time.Duration `mapstructure:"recommendation_ttl"`
	BatchConcurrency  int           `mapstructure:"batch_concurrency"`

	AnalyticsSchedule      string `mapstructure:"analytics_schedule"`
	RecommendationSchedule string `mapstructure:"recommendation_schedule"`
	ScheduleTimezone       string `mapstructure:"schedule_timezone"`
}

// Service holds initialized dependencies
type Service struct {
	DB     shared.Database
	Store  shared.BlobStore
	Pub    shared.Publisher
	Config *Config
	Log    *slog.Logger

	Catalog         *catalog.Cache
	Analytics       *analytics.Orchestrator
	Recommendations *recommendation.Orchestrator
}

// Logger returns the service logger, or the default logger when unset.
func (s *Service) Logger() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("google_cloud_project", shared.ProjectID)
	v.SetDefault("enable_publish", false)
	v.SetDefault("gcs_artifact_bucket", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("catalog_ttl", catalog.DefaultTTL.String())
	v.SetDefault("analytics_lookback", analytics.DefaultLookback.String())
	v.SetDefault("recommendation_ttl", recommendation.DefaultTTL.String())
	v.SetDefault("batch_concurrency", 10)
	v.SetDefault("analytics_schedule", "0 3 * * *")
	v.SetDefault("recommendation_schedule", "0 4 * * *")
	v.SetDefault("schedule_timezone", "UTC")
}

// LoadConfig reads configuration from environment variables
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = shared.ProjectID // Fallback
	}
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 10
	}
	return &cfg, nil
}

// ScheduleLocation resolves ScheduleTimezone, falling back to UTC.
func (c *Config) ScheduleLocation() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil || c.ScheduleTimezone == "" {
		return time.UTC
	}
	return loc
}

// GetSlogHandlerOptions returns standard handler options for GCP
func GetSlogHandlerOptions(level slog.Level) *slog.HandlerOptions {
	return &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Map standard keys to Cloud Logging keys
			if a.Key == slog.MessageKey {
				return slog.Attr{Key: "message", Value: a.Value}
			}
			if a.Key == slog.LevelKey {
				return slog.Attr{Key: "severity", Value: a.Value}
			}
			return a
		},
	}
}

// ComponentHandler wraps a slog.Handler to prepend [component] to the message
type ComponentHandler struct {
	slog.Handler
	component string
}

// Handle implements slog.Handler
func (h *ComponentHandler) Handle(ctx context.Context, r slog.Record) error {
	component := h.component

	// A record-level attribute overrides one bound with With
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "component" {
			component = a.Value.String()
			return false // stop
		}
		return true
	})

	if component != "" {
		newMsg := fmt.Sprintf("[%s] %s", component, r.Message)
		newRecord := slog.NewRecord(r.Time, r.Level, newMsg, r.PC)

		// Copy attributes, excluding "component"
		r.Attrs(func(a slog.Attr) bool {
			if a.Key != "component" {
				newRecord.AddAttrs(a)
			}
			return true
		})
		r = newRecord
	}

	return h.Handler.Handle(ctx, r)
}

// WithAttrs captures a bound component so loggers derived with
// logger.With("component", ...) keep the prefix.
func (h *ComponentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	component := h.component
	rest := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		if a.Key == "component" {
			component = a.Value.String()
			continue
		}
		rest = append(rest, a)
	}
	return &ComponentHandler{Handler: h.Handler.WithAttrs(rest), component: component}
}

func (h *ComponentHandler) WithGroup(name string) slog.Handler {
	return &ComponentHandler{Handler: h.Handler.WithGroup(name), component: h.component}
}

// ParseLevel maps LOG_LEVEL values to slog levels, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a configured logger instance
func NewLogger(serviceName string, level slog.Level) *slog.Logger {
	opts := GetSlogHandlerOptions(level)
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(&ComponentHandler{Handler: handler})
	if serviceName != "" {
		logger = logger.With("service", serviceName)
	}
	return logger
}

// InitLogger configures structured logging with Cloud Logging compatible keys
func InitLogger(level slog.Level) *slog.Logger {
	logger := NewLogger("", level)
	slog.SetDefault(logger)
	return logger
}

// Wire builds the domain components on top of already constructed adapters.
func Wire(cfg *Config, db shared.Database, pub shared.Publisher, store shared.BlobStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	cache := catalog.NewCache(db, cfg.CatalogTTL, logger)
	resolver := bodypart.NewResolver(cache, logger)

	reportBucket := cfg.GCSArtifactBucket
	if store == nil {
		reportBucket = ""
	}

	return &Service{
		DB:      db,
		Pub:     pub,
		Store:   store,
		Config:  cfg,
		Log:     logger,
		Catalog: cache,
		Analytics: analytics.NewOrchestrator(db, resolver, pub, store, analytics.Config{
			Lookback:     cfg.AnalyticsLookback,
			Concurrency:  cfg.BatchConcurrency,
			ReportBucket: reportBucket,
		}, logger),
		Recommendations: recommendation.NewOrchestrator(db, pub, store, recommendation.Config{
			TTL:          cfg.RecommendationTTL,
			Concurrency:  cfg.BatchConcurrency,
			ReportBucket: reportBucket,
		}, logger),
	}
}

// NewService initializes all standard dependencies
func NewService(ctx context.Context) (*Service, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := InitLogger(ParseLevel(cfg.LogLevel))

	logger.Info("Initializing service", "project_id", cfg.ProjectID)

	// Firestore
	fsClient, err := firestore.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		logger.Error("Firestore init failed", "error", err)
		return nil, fmt.Errorf("firestore init: %w", err)
	}

	// Pub/Sub
	var pubAdapter shared.Publisher
	if cfg.EnablePublish {
		psClient, err := pubsub.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			logger.Error("PubSub init failed", "error", err)
			return nil, fmt.Errorf("pubsub init: %w", err)
		}
		pubAdapter = &infrapubsub.PubSubAdapter{Client: psClient}
		logger.Info("Pub/Sub: REAL (ENABLE_PUBLISH=true)")
	} else {
		pubAdapter = &infrapubsub.LogPublisher{}
		logger.Info("Pub/Sub: LOG ONLY (LogPublisher)")
	}

	// Storage, only needed for batch reports
	var store shared.BlobStore
	if cfg.GCSArtifactBucket != "" {
		gcsClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Error("Storage init failed", "error", err)
			return nil, fmt.Errorf("storage init: %w", err)
		}
		store = &infrastorage.StorageAdapter{Client: gcsClient}
	}

	return Wire(cfg, database.NewFirestoreAdapter(fsClient), pubAdapter, store, logger), nil
}
