package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/noah-isme/edu-centre-api/api/swagger"
	"github.com/noah-isme/edu-centre-api/internal/handler"
	"github.com/noah-isme/edu-centre-api/internal/repository"
	"github.com/noah-isme/edu-centre-api/internal/router"
	"github.com/noah-isme/edu-centre-api/internal/service"
	"github.com/noah-isme/edu-centre-api/pkg/cache"
	"github.com/noah-isme/edu-centre-api/pkg/config"
	"github.com/noah-isme/edu-centre-api/pkg/database"
	"github.com/noah-isme/edu-centre-api/pkg/jobs"
	"github.com/noah-isme/edu-centre-api/pkg/logger"
)

// @title Edu Centre API
// @version 1.0.0
// @description Session scheduling for the education centre admin system
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.Pinger{"postgres": handler.PingFunc(db.PingContext)}

	var cacheRepo service.CacheRepository
	var rdb *redis.Client
	if cfg.Sessions.CacheEnabled {
		rdb, err = cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, session cache disabled", zap.Error(err))
		} else {
			repo := repository.NewCacheRepository(rdb, cfg.Redis.KeyPrefix, logr)
			defer repo.Close() //nolint:errcheck
			cacheRepo = repo
			checks["redis"] = repo
		}
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Sessions.CacheTTL, logr, cfg.Sessions.CacheEnabled)

	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	scheduler := service.NewSessionSchedulerService(classRepo, sessionRepo, cacheSvc, metrics, logr, service.SessionSchedulerConfig{
		HorizonMonths: cfg.Scheduler.HorizonMonths,
	})

	backfill := jobs.NewQueue("session-backfill", scheduler.HandleBackfillJob, jobs.QueueConfig{
		Workers:    cfg.Backfill.Workers,
		MaxRetries: cfg.Backfill.Retries,
		RetryDelay: cfg.Backfill.RetryDelay,
		Coalesce:   true,
		Logger:     logr,
	})
	backfill.Start(ctx)

	sessions := service.NewSessionService(sessionRepo, classRepo, db, cacheSvc, backfill, metrics, validator.New(), logr, service.SessionServiceConfig{
		CacheTTL:       cfg.Sessions.CacheTTL,
		BackfillOnList: cfg.Backfill.OnList,
	})

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	engine := router.Setup(cfg, router.Handlers{
		Scheduler: handler.NewSchedulerHandler(scheduler, logr),
		Session:   handler.NewSessionHandler(sessions),
		Metrics:   handler.NewMetricsHandler(metrics, checks),
	}, tokens, metrics, logr)

	crons := jobs.NewScheduler(logr)
	if cfg.Scheduler.CronEnabled {
		err := crons.Register("session-maintenance", cfg.Scheduler.Cron, cfg.Scheduler.CronTimeout, func(ctx context.Context) error {
			_, err := scheduler.RunScheduledMaintenance(ctx, time.Now().UTC())
			return err
		})
		if err != nil {
			logr.Fatal("failed to register maintenance cron", zap.Error(err))
		}
		crons.Start()
		if next, ok := crons.Next("session-maintenance"); ok {
			logr.Info("maintenance scheduled", zap.Time("next_run", next))
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("server shutdown failed", zap.Error(err))
	}
	if err := crons.Stop(shutdownCtx); err != nil {
		logr.Warn("maintenance cron did not stop in time", zap.Error(err))
	}
	backfill.Stop()
}
