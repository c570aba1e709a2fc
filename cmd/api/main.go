package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/BruksfildServices01/club-calendar/internal/audit"
	"github.com/BruksfildServices01/club-calendar/internal/auth"
	"github.com/BruksfildServices01/club-calendar/internal/config"
	dbpkg "github.com/BruksfildServices01/club-calendar/internal/db"
	domain "github.com/BruksfildServices01/club-calendar/internal/domain/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/infra/gcal"
	"github.com/BruksfildServices01/club-calendar/internal/infra/lock"
	"github.com/BruksfildServices01/club-calendar/internal/infra/repository"
	"github.com/BruksfildServices01/club-calendar/internal/logger"
	"github.com/BruksfildServices01/club-calendar/internal/notification"
	"github.com/BruksfildServices01/club-calendar/internal/ratelimit"
	"github.com/BruksfildServices01/club-calendar/internal/routes"
	"github.com/BruksfildServices01/club-calendar/internal/scheduler"
	ucCalendar "github.com/BruksfildServices01/club-calendar/internal/usecase/calendar"
	"github.com/BruksfildServices01/club-calendar/internal/usecase/calsync"
)

const shutdownTimeout = 15 * time.Second

func main() {

	cfg := config.Load()
	lg := logger.New(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ======================================================
	// STORAGE
	// ======================================================
	var (
		repo   domain.Repository
		conns  domain.SyncRepository
		sink   audit.Sink
		reader audit.Reader
	)

	switch cfg.StorageDriver {
	case "memory":
		mem := repository.NewMemoryRepository()
		store := audit.NewMemoryStore(0)
		repo, conns, sink, reader = mem, mem, store, store
		lg.Warn("using in-memory storage; data is lost on restart")
	default:
		db := dbpkg.NewDB(cfg)
		auditLogger := audit.New(db)
		repo = repository.NewCalendarGormRepository(db)
		conns = repository.NewSyncGormRepository(db)
		sink, reader = auditLogger, auditLogger
	}

	auditDispatcher := audit.NewDispatcher(sink, lg)

	// ======================================================
	// REDIS (optional)
	// ======================================================
	var locker calsync.Locker = lock.NewLocalLocker()
	var limiter ratelimit.Limiter = ratelimit.NewMemoryLimiter(cfg.PublicRatePerMinute, time.Minute)
	var rdb *redis.Client

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatalf("invalid REDIS_URL: %v", err)
		}
		rdb = redis.NewClient(opt)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}

		locker = lock.NewRedisLocker(rdb)
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.PublicRatePerMinute, time.Minute)
	}

	// ======================================================
	// GOOGLE + NOTIFICATIONS
	// ======================================================
	google := gcal.New(gcal.Config{
		ClientID:     cfg.GoogleClientID,
		ClientSecret: cfg.GoogleClientSecret,
		RedirectURL:  cfg.GoogleRedirectURL,
		CalendarID:   cfg.GoogleCalendarID,
	}, conns, lg)
	if !cfg.GoogleConfigured() {
		lg.Info("google calendar integration disabled")
	}

	var notifier domain.BookingNotifier
	if cfg.TelegramBotToken != "" {
		tg, err := notification.NewTelegramFromToken(cfg.TelegramBotToken)
		if err != nil {
			lg.Error("telegram disabled", slog.String("error", err.Error()))
		} else {
			notifier = tg
		}
	}

	cleanup := ucCalendar.NewRemoteCleanup(google, lg)

	reconciler := calsync.NewReconciler(repo, conns, google, locker, auditDispatcher, lg, calsync.Options{
		Concurrency: cfg.SyncConcurrency,
		CallTimeout: cfg.SyncCallTimeout,
		Lookbehind:  cfg.SyncLookbehind,
		Lookahead:   cfg.SyncLookahead,
		LockTTL:     cfg.SyncLockTTL,
	})

	// ======================================================
	// HTTP
	// ======================================================
	r := gin.New()

	routes.RegisterRoutes(r, routes.Deps{
		Config:      cfg,
		Log:         lg,
		Repo:        repo,
		Conns:       conns,
		Provider:    google,
		Meetings:    google,
		Notifier:    notifier,
		Audit:       auditDispatcher,
		AuditReader: reader,
		Cleanup:     cleanup,
		Reconciler:  reconciler,
		Limiter:     limiter,
		Tokens:      auth.NewTokens(cfg.JWTSecret),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	syncSchedule := cfg.SyncCron
	if !cfg.GoogleConfigured() {
		syncSchedule = ""
	}
	sched := scheduler.New(reconciler, syncSchedule, lg)
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Start(ctx); err != nil {
			lg.Error("scheduler failed", slog.String("error", err.Error()))
		}
	}()

	go func() {
		lg.Info("server running", slog.String("addr", cfg.Addr()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error("http shutdown", slog.String("error", err.Error()))
	}
	<-schedDone
	cleanup.Wait()
	auditDispatcher.Close()

	if rdb != nil {
		_ = rdb.Close()
	}
}
