package memory

import (
	"context"
	"sync"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// AlertDeduper keeps one marker per key, holding the last day it fired.
// Older days are overwritten, so memory stays bounded by the number of keys.
type AlertDeduper struct {
	mu   sync.Mutex
	last map[string]domain.Date
}

var _ ports.AlertDeduper = (*AlertDeduper)(nil)

func NewAlertDeduper() *AlertDeduper {
	return &AlertDeduper{last: make(map[string]domain.Date)}
}

func (d *AlertDeduper) FirstOnDay(ctx context.Context, key string, day domain.Date) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if prev, ok := d.last[key]; ok && !day.After(prev) {
		return false, nil
	}
	d.last[key] = day
	return true, nil
}
