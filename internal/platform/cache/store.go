// Package cache holds a small generic TTL store used by the read-through
// repository decorators and the card catalog.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/clan-battles/internal/platform/resilience"
)

var errNoLoader = errors.New("cache loader is required")

type item[V any] struct {
	value V
	// deadline is zero when the store has no ttl.
	deadline time.Time
}

// Stats counts lookups since the store was created.
type Stats struct {
	Hits   uint64
	Misses uint64
}

// Store is an in-process TTL cache. A zero ttl keeps entries until deleted.
// Deletes also discard loads that were in flight when they happened.
type Store[V any] struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.RWMutex
	items map[string]item[V]
	epoch uint64

	flight resilience.SingleFlight
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewStore[V any](ttl time.Duration) *Store[V] {
	return &Store[V]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[string]item[V]),
	}
}

func (s *Store[V]) Get(_ context.Context, key string) (V, bool) {
	value, ok := s.lookup(key)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return value, ok
}

func (s *Store[V]) Set(_ context.Context, key string, value V) {
	if key == "" {
		return
	}
	s.mu.Lock()
	s.put(key, value)
	s.mu.Unlock()
}

func (s *Store[V]) Delete(_ context.Context, key string) {
	if key == "" {
		return
	}
	s.mu.Lock()
	delete(s.items, key)
	s.epoch++
	s.mu.Unlock()
	s.flight.Forget(key)
}

// DeletePrefix drops every key starting with prefix.
func (s *Store[V]) DeletePrefix(_ context.Context, prefix string) {
	if prefix == "" {
		return
	}
	var dropped []string
	s.mu.Lock()
	for key := range s.items {
		if strings.HasPrefix(key, prefix) {
			delete(s.items, key)
			dropped = append(dropped, key)
		}
	}
	s.epoch++
	s.mu.Unlock()

	for _, key := range dropped {
		s.flight.Forget(key)
	}
}

// Len counts stored entries, expired ones included until they are read.
func (s *Store[V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

func (s *Store[V]) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}

// GetOrLoad returns the cached value or runs loader once for all concurrent
// callers of the same key. Loader errors are not cached, and a load that
// overlaps a delete is returned but not stored.
func (s *Store[V]) GetOrLoad(ctx context.Context, key string, loader func(context.Context) (V, error)) (V, error) {
	var zero V
	if loader == nil {
		return zero, errNoLoader
	}
	if key == "" {
		return loader(ctx)
	}
	if value, ok := s.Get(ctx, key); ok {
		return value, nil
	}

	shared, err, _ := s.flight.Do(key, func() (any, error) {
		if value, ok := s.lookup(key); ok {
			return value, nil
		}

		s.mu.RLock()
		started := s.epoch
		s.mu.RUnlock()

		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		if s.epoch == started {
			s.put(key, value)
		}
		s.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return zero, err
	}

	value, ok := shared.(V)
	if !ok {
		return zero, fmt.Errorf("cache key %q holds %T", key, shared)
	}
	return value, nil
}

func (s *Store[V]) lookup(key string) (V, bool) {
	var zero V
	if key == "" {
		return zero, false
	}

	s.mu.RLock()
	it, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return zero, false
	}
	if !it.deadline.IsZero() && !s.now().Before(it.deadline) {
		s.mu.Lock()
		if current, still := s.items[key]; still && current.deadline.Equal(it.deadline) {
			delete(s.items, key)
		}
		s.mu.Unlock()
		return zero, false
	}
	return it.value, true
}

// put requires s.mu held for writing.
func (s *Store[V]) put(key string, value V) {
	it := item[V]{value: value}
	if s.ttl > 0 {
		it.deadline = s.now().Add(s.ttl)
	}
	s.items[key] = it
}
