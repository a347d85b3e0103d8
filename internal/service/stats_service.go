package service

import (
	"context"

	"github.com/digkill/vidcrafter/internal/models"
	"github.com/digkill/vidcrafter/internal/repository"
)

type StatsService struct {
	users       *repository.UserRepository
	coupons     *repository.CouponRepository
	generations *repository.GenerationRepository
}

func NewStatsService(users *repository.UserRepository, coupons *repository.CouponRepository, generations *repository.GenerationRepository) *StatsService {
	return &StatsService{users: users, coupons: coupons, generations: generations}
}

func (s *StatsService) Stats(ctx context.Context) (*models.Stats, error) {
	var stats models.Stats
	var err error

	if stats.TotalVideos, err = s.generations.CountByStatus(ctx, ""); err != nil {
		return nil, err
	}
	if stats.SuccessfulVideos, err = s.generations.CountByStatus(ctx, models.GenerationSuccess); err != nil {
		return nil, err
	}
	if stats.FailedVideos, err = s.generations.CountByStatus(ctx, models.GenerationFailed); err != nil {
		return nil, err
	}
	if stats.TotalVideos > 0 {
		stats.SuccessRate = float64(stats.SuccessfulVideos) / float64(stats.TotalVideos) * 100
	}
	if stats.TotalUsers, err = s.users.Count(ctx); err != nil {
		return nil, err
	}
	if stats.TotalCouponsUsed, err = s.coupons.CountUsed(ctx); err != nil {
		return nil, err
	}
	return &stats, nil
}
