package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	contactAdapter "github.com/khoahotran/profile-portal/adapters/contact"
	"github.com/khoahotran/profile-portal/adapters/contentsource"
	"github.com/khoahotran/profile-portal/adapters/event"
	"github.com/khoahotran/profile-portal/adapters/filewatch"
	httpAdapter "github.com/khoahotran/profile-portal/adapters/http"
	"github.com/khoahotran/profile-portal/adapters/persistence"
	"github.com/khoahotran/profile-portal/adapters/visibility"
	"github.com/khoahotran/profile-portal/internal/application/service"
	contactUC "github.com/khoahotran/profile-portal/internal/application/usecase/contact"
	contentUC "github.com/khoahotran/profile-portal/internal/application/usecase/content"
	feedUC "github.com/khoahotran/profile-portal/internal/application/usecase/feed"
	"github.com/khoahotran/profile-portal/internal/config"
	"github.com/khoahotran/profile-portal/pkg/logger"
	"github.com/khoahotran/profile-portal/pkg/tracing"
)

const serviceName = "profile-portal"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: cannot load config: %v", err)
	}

	appLogger := logger.NewZapLogger(cfg.App.Env)
	defer appLogger.Sync()

	if cfg.App.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.NewTracerProvider(cfg, appLogger, serviceName)
	if err != nil {
		appLogger.Fatal("Failed to init tracer", err)
	}
	if tp != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				appLogger.Error("Failed to shutdown tracer", err)
			}
		}()
	}

	endpoints := cfg.Endpoints()
	appLogger.Info("Content endpoints resolved",
		zap.String("api_base", endpoints.APIBase),
		zap.Bool("snapshot_mode", endpoints.IsSnapshotMode),
		zap.String("snapshot", cfg.Content.Snapshot),
	)

	// Sources
	httpClient := contentsource.NewTracedHTTPClient()
	sourceOpts := []contentsource.Option{
		contentsource.WithHTTPClient(httpClient),
		contentsource.WithTimeout(cfg.Content.Timeout),
	}
	var apiSource service.ContentSource
	if endpoints.HasAPIBase {
		apiSource = contentsource.NewAPISource(endpoints.APIURL(config.ContentPath), appLogger, sourceOpts...)
	}
	snapshotSource := contentsource.NewSnapshotSource(cfg.Content.Snapshot, cfg.Content.Timeout, appLogger, contentsource.WithHTTPClient(httpClient))

	// Cache
	var cache service.ContentCache
	if cfg.Redis.Addr != "" {
		redisClient, err := persistence.NewRedisClient(cfg, appLogger)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without content cache", zap.Error(err))
		} else {
			defer redisClient.Close()
			cache = persistence.NewRedisContentCache(redisClient, cfg.Redis.TTL)
		}
	}

	// Loader
	loader := contentUC.NewLoader(endpoints, apiSource, snapshotSource, cache, appLogger)
	if err := loader.Restore(ctx); err != nil {
		appLogger.Warn("Failed to restore cached content", zap.Error(err))
	}

	tracker := visibility.NewTracker()
	disposeVisibility := loader.WatchTrigger(tracker)
	defer disposeVisibility()

	if len(cfg.Kafka.Brokers) > 0 {
		contentEvents, err := event.NewContentEventsTrigger(cfg, appLogger)
		if err != nil {
			appLogger.Fatal("Failed to init content events consumer", err)
		}
		defer contentEvents.Close()
		disposeEvents := loader.WatchTrigger(contentEvents)
		defer disposeEvents()
		go func() {
			if err := contentEvents.Run(ctx); err != nil {
				appLogger.Error("Content events consumer stopped", err)
			}
		}()
	}

	if cfg.Content.WatchSnapshot && !strings.Contains(cfg.Content.Snapshot, "://") {
		watcher, err := filewatch.NewSnapshotWatcher(cfg.Content.Snapshot, filewatch.DefaultDebounce, appLogger)
		if err != nil {
			appLogger.Warn("Snapshot watcher disabled", zap.Error(err))
		} else {
			defer watcher.Close()
			disposeWatch := loader.WatchTrigger(watcher)
			defer disposeWatch()
			go watcher.Run(ctx)
		}
	}

	disposeMount := loader.Mount(ctx)
	defer disposeMount()

	// Use Cases
	sender := contactAdapter.NewHTTPSender(endpoints.APIURL(config.ContactPath), cfg.Content.Timeout, httpClient, appLogger)
	contactUseCase := contactUC.NewContactUseCase(sender, endpoints, loader, appLogger)
	rssUseCase := feedUC.NewRSSUseCase(loader, cfg.App.PublicURL, appLogger)

	// HTTP Handlers
	router := httpAdapter.NewRouter(httpAdapter.RouterConfig{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		ServiceName:    serviceName,
		Tracing:        tp != nil,
	}, httpAdapter.Handlers{
		Content: httpAdapter.NewContentHandler(loader, contactUseCase, tracker, appLogger),
		Contact: httpAdapter.NewContactHandler(contactUseCase, appLogger),
		RSS:     httpAdapter.NewRSSHandler(rssUseCase, appLogger),
	}, appLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		appLogger.Info("Server running", zap.String("port", cfg.App.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal("Cannot run server", err)
		}
	}()

	<-ctx.Done()
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error("Server forced to shutdown", err)
	}
	appLogger.Info("Server exited")
}
