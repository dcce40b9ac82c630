package repository

import (
	"context"
	"fmt"

	"coderr-service/internal/models"

	"github.com/shopspring/decimal"
)

type statsRepo struct {
	db DB
}

func NewStatsRepository(db DB) StatsRepository {
	return &statsRepo{db: db}
}

// BaseInfo reads the public platform aggregates. The average rating is
// rounded half to even at one decimal and is 0 when there are no reviews.
func (r *statsRepo) BaseInfo(ctx context.Context) (*models.BaseInfo, error) {
	sql := `
		SELECT
			(SELECT COUNT(*) FROM reviews),
			(SELECT COALESCE(AVG(rating), 0)::float8 FROM reviews),
			(SELECT COUNT(*) FROM profiles WHERE type = 'business'),
			(SELECT COUNT(*) FROM offers)
	`

	var info models.BaseInfo
	var avg float64
	err := r.db.QueryRow(ctx, sql).Scan(
		&info.ReviewCount,
		&avg,
		&info.BusinessProfileCount,
		&info.OfferCount,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read base info: %w", err)
	}

	info.AverageRating = RoundRating(avg)
	return &info, nil
}

// RoundRating rounds an average rating to one decimal, halves to even.
func RoundRating(avg float64) float64 {
	return decimal.NewFromFloat(avg).RoundBank(1).InexactFloat64()
}
