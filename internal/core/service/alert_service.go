package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/shelfmark/library-api/internal/metrics"
	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// AlertService raises low-stock alerts from inventory events, at most once
// per book per library day.
type AlertService struct {
	store    ports.CatalogStore
	settings ports.SettingsService
	dedup    ports.AlertDeduper
	calendar Calendar
	log      zerolog.Logger
}

var _ ports.InventoryEventHandler = (*AlertService)(nil)

func NewAlertService(
	store ports.CatalogStore,
	settings ports.SettingsService,
	dedup ports.AlertDeduper,
	calendar Calendar,
	log zerolog.Logger,
) *AlertService {
	return &AlertService{store: store, settings: settings, dedup: dedup, calendar: calendar, log: log}
}

// Process re-reads the book, since the event only says it may have changed.
func (s *AlertService) Process(ctx context.Context, ev ports.InventoryEvent) error {
	var book domain.Book
	err := getDirect(ctx, s.store, bookKey(ev.BookID), &book, domain.ErrBookNotFound)
	if errors.Is(err, domain.ErrBookNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		return err
	}
	if !book.IsLowStock(settings.LowStockThreshold) {
		return nil
	}

	today := s.calendar.Today()
	first, err := s.dedup.FirstOnDay(ctx, "low-stock:"+book.ID, today)
	if err != nil {
		s.log.Warn().Err(err).Str("book_id", book.ID).Msg("alert dedup failed, alerting anyway")
	} else if !first {
		metrics.AlertDedupTotal.WithLabelValues("hit").Inc()
		return nil
	} else {
		metrics.AlertDedupTotal.WithLabelValues("miss").Inc()
	}

	metrics.LowStockAlertsTotal.Inc()
	s.log.Warn().
		Str("book_id", book.ID).
		Str("title", book.Title).
		Int("available", book.Available).
		Int("quantity", book.Quantity).
		Int("threshold", settings.LowStockThreshold).
		Str("trigger", ev.Kind).
		Msg("low stock")
	return nil
}
