// Package api assembles the HTTP surface of the marketplace.
package api

import (
	"net/http"
	"time"

	"coderr-service/internal/api/handlers"
	"coderr-service/internal/api/middleware"
	"coderr-service/internal/config"
	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Services struct {
	Auth     *service.AuthService
	Profiles *service.ProfileService
	Offers   *service.OfferService
	Orders   *service.OrderService
	Reviews  *service.ReviewService
	Stats    *service.StatsService
}

type RouterConfig struct {
	HTTP    config.HTTPConfig
	Limiter *middleware.RateLimiter
	DB      handlers.Pinger
	Logger  zerolog.Logger
}

func NewRouter(svc Services, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRPS, cfg.HTTP.RateLimitBurst, logger)
	}

	authH := handlers.NewAuthHandler(svc.Auth, logger)
	profileH := handlers.NewProfileHandler(svc.Profiles, logger)
	offerH := handlers.NewOfferHandler(svc.Offers, logger)
	orderH := handlers.NewOrderHandler(svc.Orders, logger)
	reviewH := handlers.NewReviewHandler(svc.Reviews, logger)
	statsH := handlers.NewStatsHandler(svc.Stats, logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(logger))
	r.Use(chimw.Recoverer)
	r.Use(metrics.InstrumentHandler)
	r.Use(chimw.StripSlashes)

	r.NotFound(handlers.NotFound)
	r.MethodNotAllowed(handlers.MethodNotAllowed)

	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if cfg.DB != nil {
		r.Get("/healthz", handlers.Health(cfg.DB, logger))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(timeoutOrDefault(cfg.HTTP.RequestTimeout)))
		r.Use(middleware.NewAuth(svc.Auth, logger).Handler)

		r.With(limiter.Handler).Post("/registration", authH.Register)
		r.With(limiter.Handler).Post("/login", authH.Login)
		r.With(middleware.RequireActor).Post("/logout", authH.Logout)

		r.Get("/profiles/business", profileH.ListByRole(models.RoleBusiness))
		r.Get("/profiles/customer", profileH.ListByRole(models.RoleCustomer))

		r.Get("/offers", offerH.List)
		r.Get("/offers/{id}", offerH.GetByID)
		r.Get("/offerdetails/{id}", offerH.GetDetail)

		r.Get("/order-count/{id}", orderH.CountInProgress)
		r.Get("/completed-order-count/{id}", orderH.CountCompleted)

		r.Get("/base-info", statsH.BaseInfo)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireActor)

			r.Get("/profile/{id}", profileH.GetByID)
			r.Patch("/profile/{id}", profileH.Update)

			r.Post("/offers", offerH.Create)
			r.Patch("/offers/{id}", offerH.Update)
			r.Delete("/offers/{id}", offerH.Delete)

			r.Get("/orders", orderH.List)
			r.Post("/orders", orderH.Create)
			r.Get("/orders/{id}", orderH.GetByID)
			r.Patch("/orders/{id}", orderH.Update)
			r.Put("/orders/{id}", orderH.Replace)
			r.Delete("/orders/{id}", orderH.Delete)

			r.Get("/reviews", reviewH.List)
			r.Post("/reviews", reviewH.Create)
			r.Get("/reviews/{id}", reviewH.GetByID)
			r.Patch("/reviews/{id}", reviewH.Update)
			r.Delete("/reviews/{id}", reviewH.Delete)
		})
	})

	return r
}

func timeoutOrDefault(d time.Duration) time.Duration {
	if d <= 0 {
		return 15 * time.Second
	}
	return d
}
