package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisclient "github.com/richxcame/ride-booking-client/pkg/redis"
)

// Manager handles caching operations with JSON serialization.
// A nil Manager, or one without a store, behaves as an always-empty cache.
type Manager struct {
	store redisclient.ClientInterface
}

// NewManager creates a new cache manager. It returns nil when store is nil.
func NewManager(store redisclient.ClientInterface) *Manager {
	if store == nil {
		return nil
	}
	return &Manager{store: store}
}

// Enabled reports whether reads and writes reach a store.
func (m *Manager) Enabled() bool {
	return m != nil && m.store != nil
}

// Get unmarshals the cached value for key into result. A miss reports
// false with a nil error.
func (m *Manager) Get(ctx context.Context, key string, result interface{}) (bool, error) {
	if !m.Enabled() {
		return false, nil
	}

	data, err := m.store.GetString(ctx, key)
	if err != nil {
		if redisclient.IsMiss(err) {
			return false, nil
		}
		return false, err
	}

	if err := json.Unmarshal([]byte(data), result); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

// Set marshals and caches a value. A non-positive ttl skips the write.
func (m *Manager) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !m.Enabled() || ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	return m.store.SetWithExpiration(ctx, key, string(data), ttl)
}

// Delete removes keys from the cache.
func (m *Manager) Delete(ctx context.Context, keys ...string) error {
	if !m.Enabled() || len(keys) == 0 {
		return nil
	}
	return m.store.Delete(ctx, keys...)
}
