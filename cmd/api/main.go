package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"intake-platform/internal/auth"
	"intake-platform/internal/calllog"
	"intake-platform/internal/config"
	"intake-platform/internal/httpapi"
	"intake-platform/internal/sink"
	"intake-platform/internal/store"
	"intake-platform/internal/webhook"
	"intake-platform/pkg/logger"
	"intake-platform/pkg/utils"
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

	log := logger.New(cfg.App.Env, "intake-api")
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	recordStore := store.New(db, log)
	if err := recordStore.Init(rootCtx); err != nil {
		log.Error("schema init failed", "err", err)
		os.Exit(1)
	}

	// Stats cache is optional: no REDIS_HOST means every /v1/stats request
	// hits Postgres directly.
	var statsCache *httpapi.StatsCache
	var rdb *redis.Client
	if cfg.CacheEnabled() {
		rdb, err = utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
		if err != nil {
			log.Error("redis init failed", "err", err)
			os.Exit(1)
		}
		defer rdb.Close()
		statsCache = httpapi.NewStatsCache(rdb, httpapi.DefaultStatsTTL, log)
	}

	archive, err := calllog.New(cfg.App.DataDir, log)
	if err != nil {
		log.Error("call archive init failed", "err", err)
		os.Exit(1)
	}

	forwarder := sink.New(cfg.Sink.URL, log)
	dispatcher := webhook.NewDispatcher(recordStore, forwarder, archive, log)

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	h := httpapi.Handlers{
		Cfg:        cfg,
		Auth:       authManager,
		Dispatcher: dispatcher,
		Calls:      recordStore,
		StatsCache: statsCache,
	}
	registerRoutes(r, h, authManager)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("webhook server listening",
			"addr", srv.Addr,
			"env", cfg.App.Env,
			"brokerage", cfg.App.BrokerageName,
			"data_dir", cfg.App.DataDir,
			"sink_configured", cfg.Sink.URL != "",
		)
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

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
