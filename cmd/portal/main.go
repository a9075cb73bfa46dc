// Command portal serves the role-gated web tier in front of the project
// manager REST backend.
//
// @title        Portal API
// @version      1.0
// @description  Role-gated web tier for the project manager: sessions, dashboards and workspace pages.
// @host         localhost:8080
// @BasePath     /
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/projecthub/portal/internal/api"
	"github.com/projecthub/portal/internal/api/middleware"
	"github.com/projecthub/portal/internal/core/ports"
	"github.com/projecthub/portal/internal/core/service"
	"github.com/projecthub/portal/internal/infrastructure/backend"
	mongostore "github.com/projecthub/portal/internal/infrastructure/db/mongo"
	redisstore "github.com/projecthub/portal/internal/infrastructure/db/redis"
	opshttp "github.com/projecthub/portal/internal/infrastructure/http"
	"github.com/projecthub/portal/internal/infrastructure/http/handlers"
	"github.com/projecthub/portal/internal/infrastructure/queue"
	"github.com/projecthub/portal/internal/pkg/config"
	"github.com/projecthub/portal/pkg/logger"
)

const (
	sweepInterval = 5 * time.Minute
	sweepIdle     = 30 * time.Minute
)

func main() {
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before reading the environment")
	pflag.Parse()

	if err := run(*envFile); err != nil {
		fmt.Fprintf(os.Stderr, "portal: %v\n", err)
		os.Exit(1)
	}
}

func run(envFile string) error {
	if err := config.LoadEnvFile(envFile); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "portal",
	})

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	checks := map[string]handlers.CheckFunc{
		"redis": handlers.RedisCheck(rdb),
	}

	var storage ports.SessionStorage = redisstore.NewSessionStorage(rdb, cfg.Session.TTL)
	var auditRepo ports.AuditRepository

	if cfg.Mongo.URI != "" {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return err
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(dctx)
		}()

		if err := mongostore.EnsureIndexes(ctx, db, cfg.Session.TTL); err != nil {
			log.Warn().Err(err).Msg("mongo index creation failed")
		}
		checks["mongodb"] = handlers.MongoCheck(db)
		auditRepo = mongostore.NewAuditRepository(db)
		if cfg.Session.Backend == config.SessionBackendMongo {
			storage = mongostore.NewSessionRepository(db)
		}
	}

	client, err := backend.New(backend.Config{BaseURL: cfg.Backend.URL, Timeout: cfg.Backend.Timeout})
	if err != nil {
		return err
	}
	checks["backend"] = client.Ping

	auditService := service.NewAuditService(auditRepo, redisstore.NewDedupChecker(rdb), logger.Component("audit"))
	dispatcher := queue.NewDispatcher(cfg.AuditWorkers, auditService, logger.Component("audit"))
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	dispatcher.Start(workerCtx)

	sessions := service.NewSessionStore(storage, logger.Component("session_store"))
	go sweep(ctx, sessions, log)

	router := api.NewRouter(api.Dependencies{
		Sessions:  sessions,
		Auth:      service.NewAuthService(client, sessions, dispatcher, logger.Component("auth")),
		Stats:     service.NewStatsService(client, logger.Component("stats")),
		Workspace: service.NewWorkspaceService(client, logger.Component("workspace")),
		Audit:     dispatcher,
		Cookie: middleware.SessionConfig{
			CookieName: cfg.Session.Cookie,
			Secret:     cfg.Session.Secret,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Secure(),
		},
		Log: log,
	})
	ops := opshttp.NewOpsRouter(checks)

	errCh := make(chan error, 2)
	go serve(errCh, log, "portal", func() error { return router.Start(":" + cfg.Port) })
	go serve(errCh, log, "ops", func() error { return ops.Start(":" + cfg.OpsPort) })

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		log.Error().Err(err).Msg("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := router.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("portal shutdown")
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops shutdown")
	}

	stopWorkers()
	dispatcher.Wait()
	return nil
}

func serve(errCh chan<- error, log zerolog.Logger, name string, start func() error) {
	log.Info().Str("server", name).Msg("listening")
	if err := start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		errCh <- fmt.Errorf("%s server: %w", name, err)
	}
}

func sweep(ctx context.Context, sessions *service.SessionStore, log zerolog.Logger) {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := sessions.Sweep(sweepIdle); n > 0 {
				log.Debug().Int("entries", n).Msg("idle sessions swept")
			}
		}
	}
}
