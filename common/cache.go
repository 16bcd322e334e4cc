package common

import "time"

// CacheRepository defines a minimal interface for a key/value cache with
// per-entry expiry. Values are decoded API records, stored as-is.
//
// Implementations must treat an expiration <= 0 as "use the default TTL".
type CacheRepository interface {
	Get(key string) (value any, found bool)
	Set(key string, value any, expiration time.Duration)
	Delete(key string)
	Clear()
	// Keys lists the live keys. Expired entries are pruned first.
	Keys() []string
}
