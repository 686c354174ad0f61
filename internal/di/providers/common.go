package providers

import "time"

const (
	// shutdownTimeout is the maximum time to wait for graceful shutdown of services.
	shutdownTimeout = 30 * time.Second

	// hydrateTimeout bounds loading the persisted buckets at boot.
	hydrateTimeout = 10 * time.Second
)
