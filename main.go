package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/healthtrack/backend/internal/config"
	"github.com/healthtrack/backend/internal/db"
	"github.com/healthtrack/backend/internal/handler"
	"github.com/healthtrack/backend/internal/logging"
	"github.com/healthtrack/backend/internal/metrics"
	"github.com/healthtrack/backend/internal/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log.Level)
	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Server.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	pool, err := db.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := db.Migrate(ctx, cfg.Postgres); err != nil {
		return err
	}
	pg := db.NewPostgres(pool)

	refreshRepo, storePinger, closeStore, err := openRefreshRepository(ctx, cfg, pg)
	if err != nil {
		return err
	}
	defer closeStore()

	hasher, err := service.NewPasswordHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	codec, err := service.NewTokenCodec([]byte(cfg.Auth.JWTSecret), nil)
	if err != nil {
		return err
	}
	authService, err := service.NewAuthService(
		pg,
		service.NewRefreshStore(refreshRepo, nil),
		codec,
		hasher,
		service.AuthOptions{
			CookieSecure:  cfg.Auth.CookieSecure,
			CookieDomain:  cfg.Auth.CookieDomain,
			CookiePath:    cfg.Auth.CookiePath,
			RotateRefresh: cfg.Auth.RotateRefresh,
		},
		logger,
	)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.RegisterCollectors(reg)

	var limiter *handler.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = handler.NewRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}

	router := handler.NewRouter(handler.RouterConfig{
		AuthService:    authService,
		Health:         handler.NewHealthHandler(pg, storePinger),
		Logger:         logger,
		Diagnostic:     cfg.Diagnostic(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimiter:    limiter,
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})

	go authService.RunSweeper(ctx, cfg.Auth.SweepInterval)

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", srv.Addr, "env", cfg.Server.Env, "session_store", cfg.Store.Backend)
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

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openRefreshRepository returns the configured refresh store, a health pinger
// for it when it is not Postgres, and a close func.
func openRefreshRepository(ctx context.Context, cfg config.Config, pg *db.Postgres) (service.RefreshRepository, handler.Pinger, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreRedis:
		client, err := db.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		pinger := handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
		return db.NewRedisRefreshRepository(client, nil), pinger, func() { _ = client.Close() }, nil

	case config.StoreMongo:
		client, err := db.ConnectMongo(ctx, cfg.Mongo)
		if err != nil {
			return nil, nil, nil, err
		}
		repo := db.NewMongoRefreshRepository(client.Database(cfg.Mongo.Database).Collection(db.RefreshCollection))
		if err := repo.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, nil, err
		}
		pinger := handler.PingFunc(func(ctx context.Context) error { return client.Ping(ctx, nil) })
		return repo, pinger, func() { _ = client.Disconnect(context.Background()) }, nil

	default:
		return pg, nil, func() {}, nil
	}
}
