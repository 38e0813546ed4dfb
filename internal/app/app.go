// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/rriarchive/harvester/internal/article"
	"github.com/rriarchive/harvester/internal/config"
	"github.com/rriarchive/harvester/internal/database"
	"github.com/rriarchive/harvester/internal/logging"
	"github.com/rriarchive/harvester/internal/metrics"
	"github.com/rriarchive/harvester/internal/progress"
	"github.com/rriarchive/harvester/internal/progress/sinks"
	"github.com/rriarchive/harvester/internal/publisher"
	memorypublisher "github.com/rriarchive/harvester/internal/publisher/memory"
	pubsubpublisher "github.com/rriarchive/harvester/internal/publisher/pubsub"
	"github.com/rriarchive/harvester/internal/section"
	"github.com/rriarchive/harvester/internal/state"
	"github.com/rriarchive/harvester/internal/storage"
	"github.com/rriarchive/harvester/internal/storage/gcs"
	"github.com/rriarchive/harvester/internal/storage/local"
)

// closeTimeout bounds the graceful shutdown of the progress hub and the
// provider clients.
const closeTimeout = 5 * time.Second

var (
	promOnce sync.Once
	promSink *sinks.PrometheusSink
	promErr  error
)

// App holds all the shared, long-lived services for the application: the
// logger, the article mirror database, the event publisher and the progress
// hub. It is initialized once at startup and passed to the commands that
// need it. Record storage is created per crawl because its root depends on
// the section being crawled.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	database  database.Provider
	publisher publisher.Publisher
	hub       *progress.Hub

	closers []io.Closer
}

// NewApp creates and initializes a new App based on the configuration held
// by the global Viper instance. It is the central point for service
// initialization and fails fast when any critical service cannot be built.
func NewApp(ctx context.Context) (*App, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	logging.L = logger
	zap.ReplaceGlobals(logger)
	logger.Info("Initializing application services...")

	metrics.Init()

	db, err := newDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	pub, err := newPublisher(ctx, cfg, logger)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	// Collectors register against the default registry exactly once per
	// process; later App instances reuse the same sink.
	promOnce.Do(func() {
		promSink, promErr = sinks.NewPrometheusSink(prometheus.DefaultRegisterer)
	})
	if promErr != nil {
		_ = db.Close()
		_ = pub.Close()
		return nil, fmt.Errorf("register progress metrics: %w", promErr)
	}
	hub := progress.NewHub(progress.Config{
		BufferSize:    cfg.Progress.BufferSize,
		MaxBatch:      cfg.Progress.MaxBatch,
		FlushInterval: cfg.Progress.FlushInterval(),
		Logger:        logger.Named("progress"),
	}, sinks.NewLogSink(logger.Named("progress")), promSink)

	logger.Info("Application services initialized successfully.")
	return &App{
		cfg:       cfg,
		logger:    logger,
		database:  db,
		publisher: pub,
		hub:       hub,
	}, nil
}

func newDatabase(ctx context.Context, cfg config.Config, logger *zap.Logger) (database.Provider, error) {
	switch cfg.Database.Provider {
	case "postgres":
		logger.Info("Connecting to PostgreSQL article mirror...")
		db, err := database.NewPostgres(ctx, database.Config{
			DSN:   cfg.Database.Postgres.DSN,
			Table: cfg.Database.Postgres.Table,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize database: %w", err)
		}
		return db, nil
	case "noop":
		logger.Info("Using No-Op database provider. Articles will not be mirrored.")
		return database.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown database provider: %s", cfg.Database.Provider)
	}
}

func newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (publisher.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		logger.Info("Connecting to GCP Pub/Sub",
			zap.String("project", cfg.Publisher.PubSub.ProjectID),
			zap.String("topic", cfg.Publisher.PubSub.TopicID),
		)
		pub, err := pubsubpublisher.New(ctx, pubsubpublisher.Config{
			ProjectID: cfg.Publisher.PubSub.ProjectID,
			TopicID:   cfg.Publisher.PubSub.TopicID,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize publisher: %w", err)
		}
		return pub, nil
	case "memory":
		logger.Info("Using in-memory publisher. Events are held for inspection only.")
		return memorypublisher.New(), nil
	case "noop":
		logger.Info("Using No-Op publisher. No events will be sent.")
		return publisher.NoOp{}, nil
	default:
		return nil, fmt.Errorf("unknown publisher provider: %s", cfg.Publisher.Provider)
	}
}

// GetConfig returns the validated configuration snapshot.
func (a *App) GetConfig() config.Config {
	return a.cfg
}

// GetLogger returns the shared zap logger instance.
func (a *App) GetLogger() *zap.Logger {
	return a.logger
}

// GetDatabase provides access to the article mirror provider.
func (a *App) GetDatabase() database.Provider {
	return a.database
}

// GetPublisher returns the article-indexed event publisher.
func (a *App) GetPublisher() publisher.Publisher {
	return a.publisher
}

// GetEmitter returns the progress hub as an event emitter.
func (a *App) GetEmitter() progress.Emitter {
	return a.hub
}

// NewRecordStore builds the article record store for one crawl, honoring
// the configured storage provider. Local storage roots at the section
// output directory; GCS prefixes objects with the section name so one
// bucket can serve several sections.
func (a *App) NewRecordStore(ctx context.Context, sec *section.Section, outputRoot string) (storage.Provider, error) {
	switch a.cfg.Storage.Provider {
	case "local":
		store, err := local.New(local.Config{BaseDir: outputRoot})
		if err != nil {
			return nil, fmt.Errorf("initialize local storage: %w", err)
		}
		return store, nil
	case "gcs":
		a.logger.Info("Using GCS record storage", zap.String("bucket", a.cfg.Storage.GCS.Bucket))
		store, err := gcs.Connect(ctx, gcs.Config{Bucket: a.cfg.Storage.GCS.Bucket})
		if err != nil {
			return nil, fmt.Errorf("initialize GCS storage: %w", err)
		}
		a.closers = append(a.closers, store)
		return storage.WithPrefix(store, sec.Name), nil
	case "noop":
		a.logger.Info("Using No-Op record storage. Article records will be discarded.")
		return &storage.NoOpProvider{}, nil
	default:
		return nil, fmt.Errorf("unknown storage provider: %s", a.cfg.Storage.Provider)
	}
}

// Stats reconstructs the current statistics for one section from its
// persisted state. An empty outputRoot falls back to the section default.
func (a *App) Stats(ctx context.Context, sectionName, outputRoot string) (article.Stats, error) {
	sec, err := section.Get(sectionName)
	if err != nil {
		return article.Stats{}, err
	}
	if outputRoot == "" {
		outputRoot = sec.DefaultOutput
	}
	store, err := state.NewFileStore(outputRoot, a.logger.Named("state"))
	if err != nil {
		return article.Stats{}, fmt.Errorf("open state store: %w", err)
	}
	entries, failed, err := store.Load(ctx)
	if err != nil {
		return article.Stats{}, fmt.Errorf("load crawl state: %w", err)
	}
	return article.DeriveStats(entries, failed, time.Now().UTC()), nil
}

// Close gracefully shuts down all services in the App container. It is
// called by a Cobra hook after the command finishes execution.
func (a *App) Close() {
	a.logger.Info("Shutting down application services...")

	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()
	if err := a.hub.Close(ctx); err != nil {
		a.logger.Warn("Error draining progress hub", zap.Error(err))
	}
	if err := a.database.Close(); err != nil {
		a.logger.Warn("Error closing database connection", zap.Error(err))
	}
	if err := a.publisher.Close(); err != nil {
		a.logger.Warn("Error closing publisher client", zap.Error(err))
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.Warn("Error closing storage client", zap.Error(err))
		}
	}

	// Flushing the logger buffer is best-effort; logging itself may be the
	// thing failing at this point.
	_ = a.logger.Sync()
}
