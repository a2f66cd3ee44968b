package core

import (
	c "api/internal/cache"
	"api/internal/models"

	"go.uber.org/zap"
)

// NewCache builds the configured cache backend. A nil return means no cache
// is configured; callers degrade gracefully (no throttling, no rate limits).
func NewCache(config models.CacheConfiguration) c.ICache {
	var (
		cache c.ICache
		err   error
	)

	switch config.Type {
	case "redis":
		cache, err = c.NewRedisCache(config.Redis)
	case "valkey":
		cache, err = c.NewValkeyCache(config.Valkey)
	default:
		return nil
	}

	if err != nil {
		zap.L().Fatal("Failed to connect to cache",
			zap.String("provider", config.Type),
			zap.Error(err))
	}

	return cache
}
