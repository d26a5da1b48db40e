package common

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// CacheService is the in-process cache used when CACHE_BACKEND=memory
type CacheService struct {
	cache *cache.Cache
}

var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpiration, cleanUpInterval time.Duration) *CacheService {
	return &CacheService{cache: cache.New(defaultExpiration, cleanUpInterval)}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	return cs.cache.Get(key)
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

func (cs *CacheService) DeletePrefix(prefix string) int {
	removed := 0
	for key := range cs.cache.Items() {
		if strings.HasPrefix(key, prefix) {
			cs.cache.Delete(key)
			removed++
		}
	}
	return removed
}

func (cs *CacheService) Close() error {
	return nil
}

// DecodeCached copies a cached value into out. It accepts the original typed
// value (in-memory cache) or its JSON-decoded form (Redis cache).
func DecodeCached(val interface{}, out interface{}) error {
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("re-encode cached value: %w", err)
	}
	return json.Unmarshal(data, out)
}
