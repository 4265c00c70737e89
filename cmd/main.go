package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chatwave/dispatch-service/config"
	"github.com/chatwave/dispatch-service/internal/hub"
	"github.com/chatwave/dispatch-service/internal/identity"
	"github.com/chatwave/dispatch-service/internal/policy"
	"github.com/chatwave/dispatch-service/internal/postgres"
	"github.com/chatwave/dispatch-service/internal/service"
	httpx "github.com/chatwave/dispatch-service/internal/transport/http"
	"github.com/chatwave/dispatch-service/internal/transport/ws"
	"github.com/chatwave/dispatch-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting dispatch-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- postgres ---
	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, postgres.PoolConfig{
		DSN:             cfg.Postgres.DSN,
		MaxConns:        cfg.Postgres.MaxConns,
		MinConns:        cfg.Postgres.MinConns,
		ApplicationName: cfg.Logging.Service,
	})
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// --- repos ---
	userRepo := postgres.NewUserRepository(pool)
	groupRepo := postgres.NewGroupRepository(pool)
	messageRepo := postgres.NewMessageRepository(pool)

	// --- block policy, optionally behind a redis cache ---
	var users policy.UserSource = userRepo
	var cachedUsers *policy.CachedUsers
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rdb.Close()
		cachedUsers = policy.NewCachedUsers(userRepo, rdb, cfg.RedisTTL())
		users = cachedUsers
		slog.Info("block-list cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.RedisTTL())
	}
	blockPolicy := policy.NewPolicy(users)

	// --- identity ---
	validator := identity.NewValidator([]byte(cfg.Auth.Secret), cfg.Auth.Issuer, cfg.ClockSkew(), userRepo)

	// --- hub & dispatcher ---
	h := hub.NewHub()
	dispatcher := service.NewDispatcher(groupRepo, messageRepo, blockPolicy, h)
	dispatcher.SetMaxContentLen(cfg.WS.MaxMessageLen)
	dispatcher.SetPersistTimeout(cfg.PersistTimeout())

	historySvc := service.NewHistoryService(messageRepo)

	// --- WS server ---
	wsServer := ws.NewServer(h, validator, dispatcher)
	wsServer.SetPingInterval(cfg.PingInterval())
	wsServer.SetAuthTimeout(cfg.AuthTimeout())

	// --- HTTP ---
	handler := httpx.NewHandler(historySvc, h)
	if cachedUsers != nil {
		handler.SetUserCache(cachedUsers)
	}
	router := httpx.NewRouter(handler, validator, wsServer)
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
