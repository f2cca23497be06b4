// Package api собирает HTTP API: зависимости, маршруты и сервер.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/handlers/access/state"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/handlers/health"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/handlers/review/items"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/handlers/review/mark"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/handlers/webhook/identity"
	"github.com/magabrotheeeer/preuniversitario-astral/internal/http/middlewarectx"
)

// AccessService нужен маршрутам для состояния доступа и проверки платных маршрутов.
type AccessService interface {
	state.Service
	middlewarectx.AccessService
}

// ReviewService нужен маршрутам очереди повторения.
type ReviewService interface {
	items.Service
	mark.Service
}

// Deps - зависимости маршрутов.
type Deps struct {
	Health        health.Checker
	Access        AccessService
	Review        ReviewService
	Identity      identity.Service
	TokenVerifier middlewarectx.TokenVerifier
	Webhook       identity.Verifier
	RateRPS       float64
	RateBurst     int
	Metrics       http.Handler
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	// Глобальные middleware
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Get("/health", health.New(logger, deps.Health).ServeHTTP)
		r.Post("/webhooks/identity", identity.New(logger, deps.Identity, deps.Webhook).ServeHTTP)

		// Группа с проверкой сессионного токена
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(deps.TokenVerifier, logger))
			r.Use(middlewarectx.RateLimitMiddleware(logger, deps.RateRPS, deps.RateBurst))
			r.Get("/me/access", state.New(logger, deps.Access).ServeHTTP)

			// Платные маршруты
			r.Group(func(r chi.Router) {
				r.Use(middlewarectx.AccessMiddleware(logger, deps.Access))
				r.Get("/review", items.New(logger, deps.Review).ServeHTTP)
				r.Post("/review/mark", mark.New(logger, deps.Review).ServeHTTP)
			})
		})
	})

	metricsHandler := deps.Metrics
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)
	// Swagger docs endpoint
	r.Get("/docs/*", httpSwagger.WrapHandler)
}
