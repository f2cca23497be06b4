package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/access"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/cache"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/config"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/jwt"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/lib/webhook"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/metrics"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/migrations"
	accessservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/access"
	identityservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/identity"
	reviewservice "github.com/magabrotheeeer/preuniversitario-astral/internal/services/review"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/storage/repository"
)

// App - HTTP API с его ресурсами.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
}

// New подключается к хранилищам, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	tokenVerifier, err := jwt.NewRSAVerifier(cfg.Auth.JWTPublicKey, cfg.Auth.Issuer, cfg.Auth.Leeway)
	if err != nil {
		return nil, fmt.Errorf("invalid auth config: %w", err)
	}
	webhookVerifier, err := webhook.NewVerifier(cfg.Webhook.Secret, cfg.Webhook.Tolerance)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook config: %w", err)
	}

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect storage: %w", err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, err
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("cache not initialized: %w", err)
	}

	m := metrics.New(nil)
	resolver := access.NewResolver(cfg.AccessConfig())
	logger.Info("access resolver configured", slog.Any("paid_plans", cfg.AccessConfig().PaidPlans))

	accessService := accessservice.NewAccessService(db, cacheRedis, resolver, m, cfg.Access.CacheTTL, logger)
	reviewService := reviewservice.NewReviewService(db, m, logger)
	identityService := identityservice.NewIdentityService(db, accessService, m, cfg.Access.TrialDays, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Deps{
		Health:        db,
		Access:        accessService,
		Review:        reviewService,
		Identity:      identityService,
		TokenVerifier: tokenVerifier,
		Webhook:       webhookVerifier,
		RateRPS:       cfg.RateLimit.RPS,
		RateBurst:     cfg.RateLimit.Burst,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
	}, nil
}

// Run запускает сервер и корректно останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", slog.Any("err", err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close storage", slog.Any("err", err))
	}
}
