package common

import "time"

// CacheInterface is the short-lived read cache in front of connection status lookups.
// Backends log and swallow their own failures: a cache miss is always safe.
type CacheInterface interface {
	Set(key string, value interface{}, duration time.Duration)

	// Get returns the stored value. The Redis backend returns the JSON-decoded form,
	// so read typed values back with DecodeCached.
	Get(key string) (interface{}, bool)

	Delete(key string)

	// DeletePrefix removes every key starting with prefix and returns how many went
	DeletePrefix(prefix string) int

	Close() error
}
