// Package cache holds exchange metadata for a bounded time so repeated
// symbol resolution does not refetch it.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/banky/hyperliquid-exec/constants"
	"github.com/banky/hyperliquid-exec/internal/metrics"
	"github.com/sirupsen/logrus"
)

// Key scopes an entry to one deployment. Namespace is the dex name for
// per-dex payloads and empty otherwise.
type Key struct {
	Environment constants.Environment
	BaseURL     string
	Namespace   string
}

type Config struct {
	// TTL defaults to constants.METADATA_TTL
	TTL time.Duration
	// Now defaults to time.Now
	Now    func() time.Time
	Logger logrus.FieldLogger
}

func (c Config) withDefaults() Config {
	if c.TTL <= 0 {
		c.TTL = constants.METADATA_TTL
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Logger == nil {
		c.Logger = logrus.StandardLogger()
	}
	return c
}

type entry[V any] struct {
	fetchedAt time.Time
	payload   V
}

// Store is a TTL map. Entries are only ever replaced whole.
type Store[V any] struct {
	name string
	cfg  Config

	mu      sync.RWMutex
	entries map[Key]entry[V]
}

func NewStore[V any](name string, cfg Config) *Store[V] {
	return &Store[V]{
		name:    name,
		cfg:     cfg.withDefaults(),
		entries: make(map[Key]entry[V]),
	}
}

// Get returns the payload for key if it was stored less than TTL ago.
func (s *Store[V]) Get(key Key) (V, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok || s.cfg.Now().Sub(e.fetchedAt) >= s.cfg.TTL {
		var zero V
		return zero, false
	}
	return e.payload, true
}

func (s *Store[V]) Put(key Key, payload V) {
	s.mu.Lock()
	s.entries[key] = entry[V]{fetchedAt: s.cfg.Now(), payload: payload}
	s.mu.Unlock()
}

func (s *Store[V]) Invalidate(key Key) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

func (s *Store[V]) InvalidateAll() {
	s.mu.Lock()
	clear(s.entries)
	s.mu.Unlock()
}

// Len counts stored entries, expired ones included.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// GetOrFetch serves key from the store or calls fetch and stores its
// result. Concurrent misses may each call fetch; the last one wins. A
// failed fetch leaves the store untouched.
func (s *Store[V]) GetOrFetch(
	ctx context.Context,
	key Key,
	fetch func(context.Context) (V, error),
) (V, error) {
	if v, ok := s.Get(key); ok {
		metrics.CacheLookups.WithLabelValues(s.name, "hit").Inc()
		return v, nil
	}
	metrics.CacheLookups.WithLabelValues(s.name, "miss").Inc()

	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	s.cfg.Logger.WithFields(logrus.Fields{
		"store":       s.name,
		"environment": key.Environment,
		"namespace":   key.Namespace,
	}).Debug("refreshed market metadata")

	s.Put(key, v)
	return v, nil
}
