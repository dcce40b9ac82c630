package service

import (
	"context"

	"coderr-service/internal/models"
	"coderr-service/internal/repository"
)

type StatsService struct {
	stats repository.StatsRepository
}

func NewStatsService(stats repository.StatsRepository) *StatsService {
	return &StatsService{stats: stats}
}

// BaseInfo returns the public platform counters.
func (s *StatsService) BaseInfo(ctx context.Context) (*models.BaseInfo, error) {
	info, err := s.stats.BaseInfo(ctx)
	if err != nil {
		return nil, Internal(err)
	}
	return info, nil
}
