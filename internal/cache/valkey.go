package cache

import "api/internal/models"

func NewValkeyCache(config *models.ValkeyCacheConfiguration) (ICache, error) {
	return newRueidisCache(
		config.Hosts,
		config.Password,
		config.TLSEnabled,
		config.TLSServerName,
		"valkey",
	)
}
