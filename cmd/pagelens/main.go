// Package main wires together the webpage analysis service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/pagelens/pagelens/internal/analysis"
	"github.com/pagelens/pagelens/internal/analyzer"
	"github.com/pagelens/pagelens/internal/api"
	"github.com/pagelens/pagelens/internal/clock/system"
	"github.com/pagelens/pagelens/internal/config"
	"github.com/pagelens/pagelens/internal/id/uuid"
	"github.com/pagelens/pagelens/internal/logging"
	"github.com/pagelens/pagelens/internal/metrics"
	"github.com/pagelens/pagelens/internal/orchestrator"
	memorypublisher "github.com/pagelens/pagelens/internal/publisher/memory"
	pubsubpublisher "github.com/pagelens/pagelens/internal/publisher/pubsub"
	"github.com/pagelens/pagelens/internal/resolver"
	"github.com/pagelens/pagelens/internal/spectext"
	gcsStorage "github.com/pagelens/pagelens/internal/storage/gcs"
	localStorage "github.com/pagelens/pagelens/internal/storage/local"
	memoryStorage "github.com/pagelens/pagelens/internal/storage/memory"
	"github.com/pagelens/pagelens/internal/storage/postgres"
)

const userAgent = "pagelens/1.0"

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	idGen := uuid.New()
	clock := system.New()

	users, pages, closeDB, err := buildStores(ctx, cfg, idGen)
	if err != nil {
		logger.Fatal("store init failed", zap.Error(err))
	}
	defer closeDB()

	blobs, err := buildBlobStore(ctx, cfg, idGen)
	if err != nil {
		logger.Fatal("blob store init failed", zap.Error(err))
	}

	publisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		logger.Fatal("publisher init failed", zap.Error(err))
	}

	specText := spectext.New()
	contentResolver := resolver.New(resolver.Config{UserAgent: userAgent}, logger.Named("resolver"))

	orch := orchestrator.New(orchestrator.Deps{
		Users:    users,
		Blobs:    blobs,
		Pages:    pages,
		Resolver: contentResolver,
		SpecText: specText,
		Accessibility: analyzer.NewAxeCore(analyzer.Config{
			BaseURL: cfg.Analyzers.AxeCore.BaseURL,
			Timeout: cfg.Analyzers.AxeCore.Timeout(),
		}, logger),
		Performance: analyzer.NewPageSpeed(analyzer.Config{
			BaseURL: cfg.Analyzers.PageSpeed.BaseURL,
			APIKey:  cfg.Analyzers.PageSpeed.APIKey,
			Timeout: cfg.Analyzers.PageSpeed.Timeout(),
		}, logger),
		Markup: analyzer.NewNuValidator(analyzer.Config{
			BaseURL: cfg.Analyzers.NuValidator.BaseURL,
			Timeout: cfg.Analyzers.NuValidator.Timeout(),
		}, logger),
		Reviewer: analyzer.NewLLM(analyzer.Config{
			BaseURL: cfg.Analyzers.LLM.BaseURL,
			APIKey:  cfg.Analyzers.LLM.APIKey,
			Timeout: cfg.Analyzers.LLM.Timeout(),
		}, logger),
		Publisher: publisher,
		Clock:     clock,
	}, orchestrator.Config{
		AnalyzerTimeout: cfg.Analyzers.AxeCore.Timeout(),
		LLMTimeout:      cfg.Analyzers.LLM.Timeout(),
		Topic:           cfg.Publisher.Topic,
	}, logger.Named("orchestrator"))

	apiServer := api.NewServer(orch, users, pages, blobs, specText, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildStores(ctx context.Context, cfg config.Config, idGen analysis.IDGenerator) (analysis.UserDirectory, analysis.WebpageStore, func(), error) {
	switch cfg.DB.Provider {
	case "postgres":
		pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		users, err := postgres.NewUserStore(pool, idGen)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		pages, err := postgres.NewWebpageStore(pool, idGen)
		if err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return users, pages, pool.Close, nil
	case "memory":
		return memoryStorage.NewUserStore(idGen), memoryStorage.NewWebpageStore(idGen), func() {}, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown db.provider %q", cfg.DB.Provider)
	}
}

func buildBlobStore(ctx context.Context, cfg config.Config, idGen analysis.IDGenerator) (analysis.BlobStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		client, err := gcstorage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		return gcsStorage.New(client, gcsStorage.Config{Bucket: cfg.Storage.GCSBucket}, idGen)
	case "local":
		return localStorage.New(localStorage.Config{BaseDir: cfg.Storage.LocalDir}, idGen)
	case "memory":
		return memoryStorage.NewBlobStore(idGen), nil
	default:
		return nil, fmt.Errorf("unknown storage.provider %q", cfg.Storage.Provider)
	}
}

func buildPublisher(ctx context.Context, cfg config.Config) (analysis.Publisher, error) {
	switch cfg.Publisher.Provider {
	case "pubsub":
		return pubsubpublisher.New(ctx, pubsubpublisher.Config{ProjectID: cfg.Publisher.ProjectID})
	case "memory":
		return memorypublisher.New(), nil
	default:
		return nil, fmt.Errorf("unknown publisher.provider %q", cfg.Publisher.Provider)
	}
}
