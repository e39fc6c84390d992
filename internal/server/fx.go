// Package server provides the application wiring and lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitemirror/internal/api"
	"github.com/JakeFAU/sitemirror/internal/clock/system"
	"github.com/JakeFAU/sitemirror/internal/config"
	"github.com/JakeFAU/sitemirror/internal/id/uuid"
	"github.com/JakeFAU/sitemirror/internal/logging"
	"github.com/JakeFAU/sitemirror/internal/metrics"
	"github.com/JakeFAU/sitemirror/internal/mirror"
	gcppublisher "github.com/JakeFAU/sitemirror/internal/publisher/pubsub"
	"github.com/JakeFAU/sitemirror/internal/session"
	gcsstorage "github.com/JakeFAU/sitemirror/internal/storage/gcs"
	localstorage "github.com/JakeFAU/sitemirror/internal/storage/local"
	memoryStorage "github.com/JakeFAU/sitemirror/internal/storage/memory"
	"github.com/JakeFAU/sitemirror/internal/users"
)

const shutdownTimeout = 10 * time.Second

// App contains the application's dependencies.
type App struct {
	cfg             *config.Config
	logger          *zap.Logger
	executor        *mirror.Executor
	apiServer       *api.Server
	pubsubClient    *pubsub.Client
	pubsubPublisher *pubsub.Publisher
	storage         *storage.Client
	closeOnce       sync.Once
}

// Build creates the application's dependencies.
func Build(ctx context.Context, cfg *config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("logger init failed: %w", err)
	}
	zap.ReplaceGlobals(logger)
	metrics.Init()

	app := &App{cfg: cfg, logger: logger}
	logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.String("mirror_backend", cfg.Mirror.Backend),
		zap.String("mirror_root", cfg.Mirror.Root),
	)

	blobStore, err := setupStorage(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	filter, err := mirror.NewFilter(cfg.Mirror.FilterConfig)
	if err != nil {
		app.closeInfrastructure()
		return nil, fmt.Errorf("asset filter init failed: %w", err)
	}
	app.executor = mirror.NewExecutor(blobStore, mirror.NewExtractor(filter), logger.Named("executor"))

	publisher, err := setupPublisher(ctx, app)
	if err != nil {
		app.closeInfrastructure()
		return nil, err
	}

	clock := system.New(nil)
	app.apiServer = api.NewServer(api.Deps{
		Executor:  app.executor,
		Sessions:  session.NewManager(clock, cfg.Mirror.Root),
		Users:     users.NewService(memoryStorage.NewUserStore(), uuid.New()),
		Publisher: publisher,
		Topic:     cfg.PubSub.TopicName,
		Clock:     clock,
	}, *cfg, logger.Named("api"))

	return app, nil
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Executor returns the task executor, for running tasks outside HTTP.
func (a *App) Executor() *mirror.Executor {
	return a.executor
}

// Handler returns the HTTP handler of the gateway.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Run serves HTTP and blocks until the context is canceled or a termination
// signal arrives.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("http server error", zap.Error(err))
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	<-ctx.Done()
	a.logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown error", zap.Error(err))
	}
	a.Close()

	if err, ok := <-serveErr; ok && err != nil {
		return fmt.Errorf("serve http: %w", err)
	}
	return nil
}

// Close releases clients and flushes the logger. Only the first call has an
// effect.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		a.closeInfrastructure()
		a.logger.Info("shutdown complete")
		if err := a.logger.Sync(); err != nil {
			a.logger.Debug("logger sync failed", zap.Error(err))
		}
	})
}

func (a *App) closeInfrastructure() {
	if a.pubsubPublisher != nil {
		a.pubsubPublisher.Stop()
		a.pubsubPublisher = nil
	}
	if a.pubsubClient != nil {
		if err := a.pubsubClient.Close(); err != nil {
			a.logger.Warn("pubsub client close failed", zap.Error(err))
		}
		a.pubsubClient = nil
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.logger.Warn("gcs client close failed", zap.Error(err))
		}
		a.storage = nil
	}
}

func setupStorage(ctx context.Context, app *App) (mirror.BlobStore, error) {
	mc := app.cfg.Mirror
	switch mc.Backend {
	case config.BackendGCS:
		app.logger.Info("using GCS mirror backend", zap.String("bucket", mc.Bucket))
		client, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("gcs client init failed: %w", err)
		}
		app.storage = client
		prefix := mc.Root
		if prefix == "." {
			prefix = ""
		}
		store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: mc.Bucket, Prefix: prefix})
		if err != nil {
			return nil, fmt.Errorf("gcs blob store init failed: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		app.logger.Info("using in-memory mirror backend")
		return memoryStorage.NewBlobStore(), nil
	default:
		app.logger.Info("using local mirror backend", zap.String("root", mc.Root))
		store, err := localstorage.New(localstorage.Config{BaseDir: mc.Root})
		if err != nil {
			return nil, fmt.Errorf("local blob store init failed: %w", err)
		}
		return store, nil
	}
}

func setupPublisher(ctx context.Context, app *App) (mirror.Publisher, error) {
	if !app.cfg.PubSub.Enabled() {
		app.logger.Info("no Pub/Sub topic configured, asset batches will not be published")
		return nil, nil
	}
	var err error
	app.pubsubClient, err = pubsub.NewClient(ctx, app.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	app.pubsubPublisher = app.pubsubClient.Publisher(app.cfg.PubSub.TopicName)
	app.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", app.cfg.PubSub.ProjectID),
		zap.String("topic", app.cfg.PubSub.TopicName),
	)
	return gcppublisher.New(app.pubsubPublisher), nil
}
