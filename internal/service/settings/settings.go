// Package settings serves the singleton clinic configuration with a short
// in-process cache in front of the repository, so the hot validation path
// does not reread the row per rule.
package settings

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/sacrapods/nutrivet-api/internal/model"
	"github.com/sacrapods/nutrivet-api/internal/repository"
	"github.com/sacrapods/nutrivet-api/pkg/logger"
)

const (
	cacheKey = "booking_settings"
	cacheTTL = 30 * time.Second
)

type Service struct {
	repo   repository.SettingsRepository
	cache  *cache.Cache
	logger *logger.Logger
}

func NewService(repo repository.SettingsRepository, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache.New(cacheTTL, 2*cacheTTL),
		logger: log,
	}
}

// Get returns the current settings, from cache when fresh. The repository
// seeds defaults on first access so Get never returns not-found.
func (s *Service) Get(ctx context.Context) (*model.BookingSettings, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(*model.BookingSettings), nil
	}
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(cacheKey, settings, cache.DefaultExpiration)
	return settings, nil
}

// Update applies the patch and invalidates the cache. Returns the updated
// settings.
func (s *Service) Update(ctx context.Context, patch *model.BookingSettingsPatch) (*model.BookingSettings, error) {
	settings, err := s.repo.Get(ctx)
	if err != nil {
		return nil, err
	}
	patch.Apply(settings)
	if err := s.repo.Save(ctx, settings); err != nil {
		return nil, err
	}
	s.cache.Delete(cacheKey)
	s.logger.Info("booking settings updated",
		"daily_limit", settings.DailyLimit,
		"start_hour", settings.StartHour,
		"end_hour", settings.EndHour,
	)
	return settings, nil
}
