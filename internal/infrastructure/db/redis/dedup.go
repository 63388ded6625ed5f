package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/shelfmark/library-api/internal/core/domain"
	"github.com/shelfmark/library-api/internal/core/ports"
)

// dedupTTL outlives the day a marker belongs to, whatever the library's time zone.
const dedupTTL = 48 * time.Hour

// AlertDeduper remembers which alerts were already raised on a given day.
// Key format: <prefix>alert:<key>:<yyyy-mm-dd>
type AlertDeduper struct {
	client *redis.Client
	prefix string
}

var _ ports.AlertDeduper = (*AlertDeduper)(nil)

func NewAlertDeduper(client *redis.Client, prefix string) *AlertDeduper {
	return &AlertDeduper{client: client, prefix: prefix}
}

// FirstOnDay atomically marks the alert and reports whether this call set the marker.
func (d *AlertDeduper) FirstOnDay(ctx context.Context, key string, day domain.Date) (bool, error) {
	ok, err := d.client.SetNX(ctx, d.key(key, day), "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("alert dedup: %w", err)
	}
	return ok, nil
}

func (d *AlertDeduper) key(key string, day domain.Date) string {
	return fmt.Sprintf("%salert:%s:%s", d.prefix, key, day)
}
