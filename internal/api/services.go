package api

import (
	"coderr-service/internal/auth"
	"coderr-service/internal/cache"
	"coderr-service/internal/config"
	"coderr-service/internal/repository"
	"coderr-service/internal/service"

	"github.com/rs/zerolog"
)

// NewServices builds every service on top of db. When store is non-nil the
// offer repository reads details through the redis cache.
func NewServices(db repository.DB, cfg *config.Config, store cache.Store, logger zerolog.Logger) Services {
	users := repository.NewUserRepository(db)
	tokens := repository.NewTokenRepository(db)

	var offers repository.OfferRepository = repository.NewOfferRepository(db)
	if store != nil {
		offers = cache.NewCachedOfferRepository(offers, store, cfg.Redis.TTL, logger)
	}

	return Services{
		Auth:     service.NewAuthService(users, tokens, auth.NewTokens(cfg.Auth.TokenSecret), logger),
		Profiles: service.NewProfileService(users, repository.NewProfileRepository(db), logger),
		Offers:   service.NewOfferService(offers, cfg.Catalog, logger),
		Orders:   service.NewOrderService(repository.NewOrderRepository(db), offers, users, logger),
		Reviews:  service.NewReviewService(repository.NewReviewRepository(db), users, logger),
		Stats:    service.NewStatsService(repository.NewStatsRepository(db)),
	}
}
