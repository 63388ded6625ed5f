package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// SettingsService persists the lending policy under a single key. Changes
// apply to transactions started afterwards; existing due dates never move.
type SettingsService struct {
	store  ports.CatalogStore
	logger zerolog.Logger
}

var _ ports.SettingsService = (*SettingsService)(nil)

func NewSettingsService(store ports.CatalogStore, logger zerolog.Logger) *SettingsService {
	return &SettingsService{store: store, logger: logger}
}

// GetSettings returns the stored settings, or the defaults if none were saved.
func (s *SettingsService) GetSettings(ctx context.Context) (domain.Settings, error) {
	var settings domain.Settings
	err := getDirect(ctx, s.store, settingsKey, &settings, errSettingsAbsent)
	if errors.Is(err, errSettingsAbsent) {
		return domain.DefaultSettings(), nil
	}
	if err != nil {
		return domain.Settings{}, err
	}
	return settings, nil
}

func (s *SettingsService) UpdateSettings(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	if err := settings.Validate(); err != nil {
		return domain.Settings{}, err
	}
	b, err := encode(settings)
	if err != nil {
		return domain.Settings{}, err
	}
	if err := s.store.Set(ctx, settingsKey, b); err != nil {
		return domain.Settings{}, storageErr("set settings", err)
	}

	s.logger.Info().
		Int("low_stock_threshold", settings.LowStockThreshold).
		Int("borrowing_period_days", settings.BorrowingPeriodDays).
		Str("fine_per_day", settings.FinePerDay.String()).
		Msg("settings updated")
	return settings, nil
}

var errSettingsAbsent = errors.New("settings not stored")
