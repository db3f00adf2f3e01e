package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/nog/internal/application"
	appanalysis "github.com/bryanwahyu/nog/internal/application/analysis"
	appchecks "github.com/bryanwahyu/nog/internal/application/checks"
	"github.com/bryanwahyu/nog/internal/application/retry"
	"github.com/bryanwahyu/nog/internal/config"
	domain "github.com/bryanwahyu/nog/internal/domain/analysis"
	"github.com/bryanwahyu/nog/internal/domain/checks"
	aiopenai "github.com/bryanwahyu/nog/internal/infra/ai/openai"
	"github.com/bryanwahyu/nog/internal/infra/ai/stub"
	"github.com/bryanwahyu/nog/internal/infra/db/memory"
	mysqlp "github.com/bryanwahyu/nog/internal/infra/db/mysql"
	"github.com/bryanwahyu/nog/internal/infra/db/postgres"
	"github.com/bryanwahyu/nog/internal/infra/httpserver"
	"github.com/bryanwahyu/nog/internal/infra/observability"
	minioStore "github.com/bryanwahyu/nog/internal/infra/storage"
	"github.com/bryanwahyu/nog/internal/logging"
	"github.com/bryanwahyu/nog/internal/middleware"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("dotenv error: %v", err)
	}

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	for user := range cfg.Auth.Tokens {
		if err := middleware.ValidateUserID(user); err != nil {
			return fmt.Errorf("auth.tokens: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observability.Register(reg)

	repo, db, err := openRepository(ctx, cfg)
	if err != nil {
		return err
	}
	health := map[string]middleware.HealthChecker{}
	if db != nil {
		defer db.Close()
		health["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}
	logger.Info("check store ready", zap.String("driver", cfg.Database.Driver))

	var images checks.ImageArchive
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx, minioStore.Options{
			Endpoint:  cfg.Minio.Endpoint,
			Region:    cfg.Minio.Region,
			Bucket:    cfg.Minio.BucketName,
			AccessKey: cfg.Minio.AccessKey,
			SecretKey: cfg.Minio.SecretKey,
			UseSSL:    cfg.Minio.UseSSL,
			PublicURL: cfg.Minio.PublicURL,
		})
		if err != nil {
			return fmt.Errorf("minio init: %w", err)
		}
		images = store
		logger.Info("image archive ready", zap.String("bucket", cfg.Minio.BucketName))
	}

	imageReq, textReq, err := requesters(cfg)
	if err != nil {
		return err
	}
	logger.Info("analysis provider ready", zap.String("provider", cfg.AI.Provider))

	analyzer := &appanalysis.Service{
		Image:    imageReq,
		Text:     textReq,
		Checks:   repo,
		Images:   images,
		Reporter: observability.NewReporter(logger),
		Clock:    application.SystemClock{},
		Backoff: retry.Backoff{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Base:        cfg.Retry.BaseDelay,
		},
		Logger:         logger,
		PersistTimeout: cfg.Checks.PersistTimeout,
	}

	handler := httpserver.NewRouter(httpserver.Deps{
		Analyzer:       analyzer,
		History:        appchecks.NewService(repo),
		Logger:         logger,
		Tokens:         cfg.Auth.Tokens,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Health:         health,
		Gatherer:       reg,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  2 * cfg.Server.ReadTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down server")

	sctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func openRepository(ctx context.Context, cfg *config.Config) (checks.Repository, *sql.DB, error) {
	switch cfg.Database.Driver {
	case "memory":
		return memory.NewCheckRepository(), nil, nil
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("postgres connect: %w", err)
		}
		return postgres.NewCheckRepository(db), db, nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, nil, fmt.Errorf("mysql connect: %w", err)
		}
		return mysqlp.NewCheckRepository(db), db, nil
	}
}

func requesters(cfg *config.Config) (image, text domain.Requester, err error) {
	if cfg.AI.Provider == "stub" {
		r := stub.NewRequester()
		return r, r, nil
	}
	client, err := aiopenai.NewClient(aiopenai.Config{
		APIKey:      cfg.AI.APIKey,
		BaseURL:     cfg.AI.BaseURL,
		ImageModel:  cfg.AI.ImageModel,
		TextModel:   cfg.AI.TextModel,
		Temperature: cfg.AI.Temperature,
		JSONMode:    cfg.AI.JSONMode,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("openai client: %w", err)
	}
	return &aiopenai.ImageRequester{Client: client}, &aiopenai.TextRequester{Client: client}, nil
}
