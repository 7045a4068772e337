package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/niggl1/interfoneapp/internal/audit"
	"github.com/niggl1/interfoneapp/internal/auth"
	"github.com/niggl1/interfoneapp/internal/calls"
	"github.com/niggl1/interfoneapp/internal/config"
	"github.com/niggl1/interfoneapp/internal/directory"
	"github.com/niggl1/interfoneapp/internal/httpapi"
	"github.com/niggl1/interfoneapp/internal/notify"
	"github.com/niggl1/interfoneapp/internal/registry"
	"github.com/niggl1/interfoneapp/internal/reporting"
	"github.com/niggl1/interfoneapp/internal/signaling"
	"github.com/niggl1/interfoneapp/pkg/logger"
	"github.com/niggl1/interfoneapp/pkg/utils"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Connection plumbing: registry for presence, rooms for call membership,
	// relay for event routing. The relay is also the sink that pushes
	// lifecycle changes back out to connected devices.
	reg := registry.New(log)
	rooms := signaling.NewRooms(log, rdb)
	dir := directory.NewPostgresDirectory(db, reg)
	relay := signaling.NewRelay(log, reg, rooms, dir)

	store := calls.NewPostgresStore(db)

	var guard calls.RingGuard
	if cfg.Calls.MaxRinging > 0 {
		// Slot TTL comfortably above the ring timeout so crashed instances
		// cannot leave a receiver permanently busy.
		guard = calls.NewRedisRingGuard(rdb, cfg.Calls.MaxRinging, cfg.Calls.RingTimeout+30*time.Second)
	}

	callService := calls.NewService(calls.ServiceConfig{
		Store:    store,
		Logger:   log,
		Presence: reg,
		Guard:    guard,
		Sinks: []calls.TransitionSink{
			relay,
			audit.NewSink(log, audit.NewPostgresLog(db)),
			notify.NewRedisPublisher(log, rdb),
			notify.NewLogSink(log),
		},
		RingTimeout: cfg.Calls.RingTimeout,
	})
	defer callService.Close()
	relay.BindService(callService)

	api := httpapi.New(log, callService, dir, reporting.NewService(store))
	ws := signaling.NewHandler(log, relay, authManager, cfg.App.AllowedOrigins)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, deps{
		api:    api,
		ws:     ws,
		authMW: auth.RequireUser(authManager),
		health: healthHandler(db, rdb),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}
	relay.Shutdown()
}

// healthHandler reports readiness: the process is only healthy when both
// backing stores answer.
func healthHandler(db *sql.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		if err := utils.HealthCheck(ctx, db, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "postgres": err.Error()})
			return
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
