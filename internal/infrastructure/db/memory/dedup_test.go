package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/library-api/internal/core/domain"
)

func TestAlertDeduper_OncePerDay(t *testing.T) {
	d := NewAlertDeduper()
	ctx := context.Background()
	day := domain.NewDate(2024, 3, 1)

	first, err := d.FirstOnDay(ctx, "low-stock:b1", day)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.FirstOnDay(ctx, "low-stock:b1", day)
	require.NoError(t, err)
	assert.False(t, again, "second alert on the same day")

	other, err := d.FirstOnDay(ctx, "low-stock:b2", day)
	require.NoError(t, err)
	assert.True(t, other, "keys are independent")

	next, err := d.FirstOnDay(ctx, "low-stock:b1", day.AddDays(1))
	require.NoError(t, err)
	assert.True(t, next, "a new day fires again")
}

func TestAlertDeduper_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewAlertDeduper().FirstOnDay(ctx, "k", domain.NewDate(2024, 3, 1))
	assert.ErrorIs(t, err, context.Canceled)
}
