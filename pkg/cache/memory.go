package cache

import (
	"context"
	"encoding/json"
	"path"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryTTL = 7 * 24 * time.Hour

// memoryItem holds the encoded value so reads decode into any destination
// the way the Redis layer does.
type memoryItem struct {
	data     []byte
	expireAt time.Time
}

func (m memoryItem) expired(now time.Time) bool { return now.After(m.expireAt) }

// MemoryCache implements Service on a bounded LRU with per-key expiry.
type MemoryCache struct {
	items         *lru.Cache[string, memoryItem]
	mu            sync.Mutex // serialises read-modify-write operations
	cleanupTicker *time.Ticker
	done          chan struct{}
	closeOnce     sync.Once
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize:         1000,
		CleanupInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 1000
	}

	items, _ := lru.New[string, memoryItem](cfg.MaxSize) // only fails on size <= 0
	mc := &MemoryCache{
		items:         items,
		cleanupTicker: time.NewTicker(cfg.CleanupInterval),
		done:          make(chan struct{}),
	}
	go mc.cleanupExpired()
	return mc
}

func encode(value interface{}) ([]byte, error) {
	switch v := value.(type) {
	case string:
		return []byte(v), nil
	case *string:
		return []byte(*v), nil
	case []byte:
		return v, nil
	default:
		return json.Marshal(value)
	}
}

func decode(data []byte, dest interface{}) error {
	if strPtr, ok := dest.(*string); ok {
		*strPtr = string(data)
		return nil
	}
	return json.Unmarshal(data, dest)
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := encode(value)
	if err != nil {
		return err
	}
	if expiration <= 0 {
		expiration = defaultMemoryTTL
	}
	mc.items.Add(key, memoryItem{data: data, expireAt: time.Now().Add(expiration)})
	return nil
}

// live returns the item for key, evicting it when expired.
func (mc *MemoryCache) live(key string) (memoryItem, bool) {
	item, ok := mc.items.Get(key)
	if !ok {
		return memoryItem{}, false
	}
	if item.expired(time.Now()) {
		mc.items.Remove(key)
		return memoryItem{}, false
	}
	return item, true
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	item, ok := mc.live(key)
	if !ok {
		return ErrCacheMiss
	}
	return decode(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		mc.items.Remove(key)
	}
	return nil
}

// DeleteByPattern removes keys matching a glob pattern.
func (mc *MemoryCache) DeleteByPattern(_ context.Context, pattern string) error {
	for _, key := range mc.items.Keys() {
		if ok, _ := path.Match(pattern, key); ok {
			mc.items.Remove(key)
		}
	}
	return nil
}

func (mc *MemoryCache) Exists(_ context.Context, keys ...string) (bool, error) {
	for _, key := range keys {
		if _, ok := mc.live(key); ok {
			return true, nil
		}
	}
	return false, nil
}

func (mc *MemoryCache) TryLock(_ context.Context, key string, ttl time.Duration) (bool, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	if _, ok := mc.live(key); ok {
		return false, nil
	}
	mc.items.Add(key, memoryItem{data: []byte("locked"), expireAt: time.Now().Add(ttl)})
	return true, nil
}

func (mc *MemoryCache) Unlock(ctx context.Context, key string) error {
	return mc.Delete(ctx, key)
}

// Len reports the number of entries, expired ones included until swept.
func (mc *MemoryCache) Len() int { return mc.items.Len() }

func (mc *MemoryCache) cleanupExpired() {
	for {
		select {
		case <-mc.done:
			return
		case <-mc.cleanupTicker.C:
			now := time.Now()
			for _, key := range mc.items.Keys() {
				if item, ok := mc.items.Peek(key); ok && item.expired(now) {
					mc.items.Remove(key)
				}
			}
		}
	}
}

// Close stops the cleanup loop.
func (mc *MemoryCache) Close() error {
	mc.closeOnce.Do(func() {
		mc.cleanupTicker.Stop()
		close(mc.done)
	})
	return nil
}

var (
	_ Service = (*MemoryCache)(nil)
	_ Locker  = (*MemoryCache)(nil)
)
