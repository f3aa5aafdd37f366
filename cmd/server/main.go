package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Skufu/ddxengine/internal/catalog"
	"github.com/Skufu/ddxengine/internal/config"
	"github.com/Skufu/ddxengine/internal/httpapi"
	"github.com/Skufu/ddxengine/internal/inference"
	"github.com/Skufu/ddxengine/internal/logging"
	"github.com/Skufu/ddxengine/internal/runlog"
	"github.com/Skufu/ddxengine/internal/store/pgstore"
	"github.com/Skufu/ddxengine/internal/store/sqlitestore"
)

// backend bundles the store-backed collaborators chosen by configuration.
type backend struct {
	store    inference.ReferenceStore
	health   httpapi.HealthChecker
	recorder runlog.Recorder
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := context.Background()
	be, err := openBackend(ctx, cfg)
	if err != nil {
		logger.Fatal("store init failed", zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer be.close()

	engine := inference.New(be.store, inference.WithLogger(logger))
	router := httpapi.NewRouter(httpapi.Deps{
		Engine:       engine,
		Health:       be.health,
		Recorder:     be.recorder,
		Logger:       logger,
		InferTimeout: cfg.InferTimeout,
	})
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	logger.Info("server listening",
		zap.String("port", cfg.Port),
		zap.String("backend", cfg.StoreBackend),
		zap.Bool("run_log", cfg.EnableRunLog),
	)
	waitForShutdown(server, logger)
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreBackend {
	case config.BackendPostgres:
		pool, err := pgstore.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		s := pgstore.New(pool)
		return &backend{
			store:    s,
			health:   s,
			recorder: recorderFor(cfg, s),
			close:    pool.Close,
		}, nil

	case config.BackendSQLite:
		s, err := sqlitestore.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return &backend{
			store:    s,
			health:   s,
			recorder: recorderFor(cfg, s),
			close:    func() { _ = s.Close() },
		}, nil

	case config.BackendCatalog:
		c, err := catalog.Load(cfg.CatalogPath)
		if err != nil {
			return nil, err
		}
		return &backend{
			store:    catalog.NewStore(c),
			recorder: runlog.Nop{},
			close:    func() {},
		}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func recorderFor(cfg *config.Config, r runlog.Recorder) runlog.Recorder {
	if !cfg.EnableRunLog {
		return runlog.Nop{}
	}
	return r
}

func waitForShutdown(server *http.Server, logger *zap.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}
