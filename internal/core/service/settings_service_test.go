package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/infrastructure/db/memory"
)

func TestSettingsService_DefaultsWhenAbsent(t *testing.T) {
	svc := NewSettingsService(memory.NewStore(), zerolog.Nop())

	got, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings returned error: %v", err)
	}
	want := domain.DefaultSettings()
	if got.LowStockThreshold != want.LowStockThreshold || got.BorrowingPeriodDays != want.BorrowingPeriodDays || !got.FinePerDay.Equal(want.FinePerDay) {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestSettingsService_UpdateRoundTrip(t *testing.T) {
	svc := NewSettingsService(memory.NewStore(), zerolog.Nop())
	in := domain.Settings{LowStockThreshold: 0, BorrowingPeriodDays: 21, FinePerDay: decimal.RequireFromString("0.25")}

	if _, err := svc.UpdateSettings(context.Background(), in); err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	got, err := svc.GetSettings(context.Background())
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if got.BorrowingPeriodDays != 21 || got.LowStockThreshold != 0 || !got.FinePerDay.Equal(in.FinePerDay) {
		t.Fatalf("unexpected settings after update: %+v", got)
	}
}

func TestSettingsService_UpdateRejectsInvalid(t *testing.T) {
	store := memory.NewStore()
	svc := NewSettingsService(store, zerolog.Nop())

	_, err := svc.UpdateSettings(context.Background(), domain.Settings{LowStockThreshold: 1, BorrowingPeriodDays: 0, FinePerDay: decimal.NewFromInt(1)})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := store.Get(context.Background(), settingsKey); err == nil {
		t.Fatalf("invalid settings were stored")
	}
}
