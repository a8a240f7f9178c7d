package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/vc-analyst/internal/application"
	appai "github.com/bryanwahyu/vc-analyst/internal/application/ai"
	appanalyses "github.com/bryanwahyu/vc-analyst/internal/application/analyses"
	appmirror "github.com/bryanwahyu/vc-analyst/internal/application/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/config"
	domai "github.com/bryanwahyu/vc-analyst/internal/domain/ai"
	"github.com/bryanwahyu/vc-analyst/internal/domain/mirror"
	"github.com/bryanwahyu/vc-analyst/internal/domain/report"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/anthropic"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/gemini"
	"github.com/bryanwahyu/vc-analyst/internal/infra/ai/openai"
	mysqlp "github.com/bryanwahyu/vc-analyst/internal/infra/db/mysql"
	"github.com/bryanwahyu/vc-analyst/internal/infra/db/postgres"
	"github.com/bryanwahyu/vc-analyst/internal/infra/httpserver"
	mongostore "github.com/bryanwahyu/vc-analyst/internal/infra/mirror/mongo"
	minioStore "github.com/bryanwahyu/vc-analyst/internal/infra/storage"
	"github.com/bryanwahyu/vc-analyst/internal/middleware"
)

func main() {
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := newLogger(cfg.Log.Mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(mode string) (*zap.Logger, error) {
	if mode == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx := context.Background()

	db, repo, err := openPrimary(ctx, cfg)
	if err != nil {
		return fmt.Errorf("%s connect: %w", cfg.Database.Driver, err)
	}
	defer db.Close()

	model, err := newModel(ctx, cfg)
	if err != nil {
		return fmt.Errorf("ai client: %w", err)
	}

	store, mirrorCheck, closeMirror := openMirror(ctx, cfg, log)
	defer closeMirror()

	owners := make(map[string]report.Owner, len(cfg.Auth.Users))
	for _, u := range cfg.Auth.Users {
		if err := middleware.ValidateOwnerID(u.ID); err != nil {
			return fmt.Errorf("auth user %q: %w", u.ID, err)
		}
		owners[u.APIKey] = report.Owner{ID: u.ID, Email: u.Email, DisplayName: u.DisplayName}
	}
	if len(owners) == 0 {
		log.Warn("no auth.users configured, every /v1 request will be rejected")
	}

	svc := &appanalyses.Service{
		Repo:      repo,
		Generator: appai.NewReportGenerator(model, cfg.AI.Timeout, log),
		Mirror:    appmirror.NewCoordinator(store, application.SystemClock{}, cfg.Mirror.Timeout, log),
		Log:       log.Named("analyses"),
	}

	optional := map[string]middleware.HealthChecker{}
	if mirrorCheck != nil {
		optional["mirror"] = mirrorCheck
	}
	handler := httpserver.NewRouter(httpserver.Deps{
		Analyses:    svc,
		Market:      appai.NewMarketGenerator(model, cfg.AI.Timeout, log),
		Owners:      owners,
		Limiter:     middleware.NewRateLimiter(cfg.Server.RateLimit.PerSecond, cfg.Server.RateLimit.Burst),
		CORSOrigins: cfg.Server.CORSOrigins,
		Required:    map[string]middleware.HealthChecker{"database": &middleware.DatabaseHealthChecker{DB: db}},
		Optional:    optional,
		Log:         log,
	})

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", addr),
			zap.String("database", cfg.Database.Driver),
			zap.String("ai_provider", cfg.AI.Provider),
			zap.String("mirror", cfg.Mirror.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	log.Info("shutting down server")

	ctx2, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx2)
}

func openPrimary(ctx context.Context, cfg *config.Config) (*sql.DB, report.Repository, error) {
	switch cfg.Database.Driver {
	case "postgres":
		db, err := postgres.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := postgres.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return db, postgres.NewReportRepository(db), nil
	default:
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := mysqlp.EnsureSchema(ctx, db); err != nil {
				db.Close()
				return nil, nil, err
			}
		}
		return db, mysqlp.NewReportRepository(db), nil
	}
}

func newModel(ctx context.Context, cfg *config.Config) (domai.Client, error) {
	if cfg.AI.APIKey == "" {
		return nil, fmt.Errorf("no api key for provider %q", cfg.AI.Provider)
	}
	switch cfg.AI.Provider {
	case "openai":
		return openai.NewClient(cfg.AI.APIKey, cfg.AI.Model), nil
	case "anthropic":
		return anthropic.NewClient(cfg.AI.APIKey, cfg.AI.Model), nil
	default:
		return gemini.NewClient(ctx, cfg.AI.APIKey, cfg.AI.Model)
	}
}

// openMirror never fails startup. An unreachable store leaves the service
// running with every sync skipped.
func openMirror(ctx context.Context, cfg *config.Config, log *zap.Logger) (mirror.Store, middleware.HealthChecker, func()) {
	noop := func() {}
	ctx, cancel := context.WithTimeout(ctx, cfg.Mirror.Timeout)
	defer cancel()

	switch cfg.Mirror.Driver {
	case "mongo":
		s, err := mongostore.Open(ctx, cfg.Mirror.Mongo.URI, cfg.Mirror.Mongo.Database, cfg.Mirror.Timeout)
		if err != nil {
			log.Warn("mirror store unavailable, syncs will be skipped", zap.String("driver", "mongo"), zap.Error(err))
			return nil, nil, noop
		}
		closer := func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(c)
		}
		return s, middleware.CheckFunc(s.Ping), closer
	case "minio":
		m := cfg.Mirror.Minio
		s, err := minioStore.New(ctx, m.Endpoint, m.Region, m.BucketName, m.AccessKey, m.SecretKey, m.UseSSL)
		if err != nil {
			log.Warn("mirror store unavailable, syncs will be skipped", zap.String("driver", "minio"), zap.Error(err))
			return nil, nil, noop
		}
		return s, middleware.CheckFunc(s.Ping), noop
	default:
		log.Info("mirror store disabled")
		return nil, nil, noop
	}
}
