package main

import (
	"context"
	"fmt"

	"github.com/shelfmark/library-api/internal/api/handler"
	"github.com/shelfmark/library-api/internal/core/ports"
	"github.com/shelfmark/library-api/internal/infrastructure/config"
	"github.com/shelfmark/library-api/internal/infrastructure/db/memory"
	mongostore "github.com/shelfmark/library-api/internal/infrastructure/db/mongo"
	redisstore "github.com/shelfmark/library-api/internal/infrastructure/db/redis"
	"github.com/shelfmark/library-api/internal/infrastructure/db/sqlite"
)

// backend is the store selected by STORE_DRIVER plus the alert deduper that
// goes with it. There is no fallback: a driver that cannot connect is fatal.
type backend struct {
	store ports.CatalogStore
	dedup ports.AlertDeduper
	name  string
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		return &backend{store: memory.NewStore(), dedup: memory.NewAlertDeduper(), name: "memory"}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		return &backend{
			store: redisstore.NewStore(client, cfg.Redis.Prefix),
			dedup: redisstore.NewAlertDeduper(client, cfg.Redis.Prefix),
			name:  "redis",
		}, nil

	case config.DriverMongo:
		db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
		})
		if err != nil {
			return nil, fmt.Errorf("mongo: %w", err)
		}
		return &backend{
			store: mongostore.NewStore(db, cfg.Mongo.Collection),
			dedup: memory.NewAlertDeduper(),
			name:  "mongodb",
		}, nil

	case config.DriverSQLite:
		s, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, fmt.Errorf("sqlite: %w", err)
		}
		return &backend{store: s, dedup: memory.NewAlertDeduper(), name: "sqlite"}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

func (b *backend) readiness() map[string]handler.Pinger {
	return map[string]handler.Pinger{b.name: b.store}
}

func (b *backend) Close() error { return b.store.Close() }
