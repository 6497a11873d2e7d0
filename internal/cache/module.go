package cache

import (
	"context"
	"fmt"

	"github.com/civicmatch/civic-match/internal/config"
	"go.uber.org/fx"
)

// NewStorage builds the storage selected by cache.driver.
func NewStorage(cfg *config.CacheConfig) (Storage, error) {
	switch cfg.Driver {
	case "memory":
		return NewMemoryStorage(), nil
	case "sqlite", "":
		return NewSQLiteStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}

func newLifecycleStorage(lc fx.Lifecycle, cfg *config.CacheConfig) (Storage, error) {
	s, err := NewStorage(cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error { return s.Close() },
	})
	return s, nil
}

// Module provides the cache storage
var Module = fx.Module("cache",
	fx.Provide(newLifecycleStorage),
)
