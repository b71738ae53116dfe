package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache with per-entry TTLs. A background janitor
// evicts expired entries; reads also evict lazily so an expired entry is
// never served.
type Memory struct {
	entries sync.Map
	config  Config
	cancel  context.CancelFunc
}

type memoryEntry struct {
	value   []byte
	expires time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && now.After(e.expires)
}

// NewMemory creates an in-process cache with the default configuration
func NewMemory() *Memory {
	return NewMemoryWithConfig(DefaultConfig())
}

// NewMemoryWithConfig creates an in-process cache
func NewMemoryWithConfig(config Config) *Memory {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Memory{config: config, cancel: cancel}
	go m.janitor(ctx)
	return m
}

// Get retrieves a value, returning ErrCacheMiss when absent or expired
func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, ok := m.entries.Load(m.config.Prefix + key)
	if !ok {
		return nil, ErrCacheMiss{Key: key}
	}
	entry := raw.(memoryEntry)
	if entry.expired(time.Now()) {
		m.entries.Delete(m.config.Prefix + key)
		return nil, ErrCacheMiss{Key: key}
	}
	return entry.value, nil
}

// Set stores a value; ttl 0 means the configured default, negative means
// no expiry
func (m *Memory) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expires = time.Now().Add(ttl)
	}
	m.entries.Store(m.config.Prefix+key, entry)
	return nil
}

// Delete removes a single value
func (m *Memory) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.entries.Delete(m.config.Prefix + key)
	return nil
}

// Clear removes all values
func (m *Memory) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.entries.Range(func(key, _ interface{}) bool {
		m.entries.Delete(key)
		return true
	})
	return nil
}

// Close stops the janitor
func (m *Memory) Close() error {
	m.cancel()
	return nil
}

func (m *Memory) janitor(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			m.entries.Range(func(key, raw interface{}) bool {
				if raw.(memoryEntry).expired(now) {
					m.entries.Delete(key)
				}
				return true
			})
		}
	}
}
