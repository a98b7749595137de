package redis

import "time"

// Config holds Redis connection and behavior settings
type Config struct {
	// URL is the Redis connection URL (e.g., redis://localhost:6379)
	URL string

	// Pool settings
	PoolSize     int
	MinIdleConns int

	// GuestIdentityTTL expires guest identities. Zero keeps them.
	GuestIdentityTTL time.Duration

	// MatchHistoryLimit caps the per-player result index
	MatchHistoryLimit int64

	// MaxTxRetries bounds optimistic retries on skill updates
	MaxTxRetries int
}

// DefaultConfig returns sensible defaults for Redis configuration
func DefaultConfig() Config {
	return Config{
		URL:               "redis://localhost:6379",
		PoolSize:          10,
		MinIdleConns:      2,
		GuestIdentityTTL:  24 * time.Hour,
		MatchHistoryLimit: 100,
		MaxTxRetries:      5,
	}
}
