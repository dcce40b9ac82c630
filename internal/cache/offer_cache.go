package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coderr-service/internal/metrics"
	"coderr-service/internal/models"
	"coderr-service/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const notFoundMarker = "notfound"

// Store is the part of *redis.Client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CachedOfferRepository serves offer detail reads from redis and falls back
// to the wrapped repository. Writes go through and drop the affected keys.
type CachedOfferRepository struct {
	repository.OfferRepository
	redis       Store
	ttl         time.Duration
	notFoundTTL time.Duration
	logger      zerolog.Logger
}

func NewCachedOfferRepository(realRepo repository.OfferRepository, store Store, ttl time.Duration, logger zerolog.Logger) *CachedOfferRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedOfferRepository{
		OfferRepository: realRepo,
		redis:           store,
		ttl:             ttl,
		notFoundTTL:     1 * time.Minute,
		logger:          logger.With().Str("component", "offer_cache").Logger(),
	}
}

func detailKey(id int64) string {
	return fmt.Sprintf("offerdetail:%d", id)
}

func (c *CachedOfferRepository) GetDetail(ctx context.Context, id int64) (*models.OfferDetail, error) {
	key := detailKey(id)

	data, err := c.redis.Get(ctx, key).Bytes()

	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			metrics.RecordCacheLookup("offer_detail", true)
			return nil, repository.ErrNotFound
		}

		var detail models.OfferDetail
		if err := json.Unmarshal(data, &detail); err != nil {
			c.logger.Warn().Err(err).Str("key", key).Msg("failed to unmarshal cached detail, continuing with DB")
			break
		}

		metrics.RecordCacheLookup("offer_detail", true)
		return &detail, nil

	case errors.Is(err, redis.Nil):

	default:
		c.logger.Warn().Err(err).Msg("redis error, continuing with DB")
	}

	metrics.RecordCacheLookup("offer_detail", false)

	detail, err := c.OfferRepository.GetDetail(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, c.notFoundTTL).Err(); setErr != nil {
				c.logger.Warn().Err(setErr).Msg("failed to cache notfound")
			}
		}
		return nil, err
	}

	jsonData, err := json.Marshal(detail)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to marshal detail")
		return detail, nil
	}

	if err := c.redis.Set(ctx, key, jsonData, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to cache detail")
	}

	return detail, nil
}

func (c *CachedOfferRepository) invalidateDetails(ctx context.Context, ids []int64) {
	if len(ids) == 0 {
		return
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, detailKey(id))
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		c.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to delete detail cache")
	}
}

// Create drops cached "notfound" markers: ids are fresh, but a client may
// have probed them before they existed.
func (c *CachedOfferRepository) Create(ctx context.Context, offer *models.Offer) error {
	if err := c.OfferRepository.Create(ctx, offer); err != nil {
		return err
	}

	ids := make([]int64, 0, len(offer.Details))
	for _, d := range offer.Details {
		ids = append(ids, d.ID)
	}
	c.invalidateDetails(ctx, ids)

	return nil
}

func (c *CachedOfferRepository) Update(ctx context.Context, id int64, patch models.OfferPatch, check repository.DetailCheck) (*models.Offer, error) {
	old, err := c.OfferRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := c.OfferRepository.Update(ctx, id, patch, check)

	ids := append([]int64{}, old.DetailIDs...)
	if updated != nil {
		ids = append(ids, updated.DetailIDs...)
	}
	c.invalidateDetails(ctx, ids)

	return updated, err
}

func (c *CachedOfferRepository) Delete(ctx context.Context, id int64) error {
	offer, err := c.OfferRepository.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if err := c.OfferRepository.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidateDetails(ctx, offer.DetailIDs)

	return nil
}
