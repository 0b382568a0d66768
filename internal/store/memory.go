package store

import (
	"container/list"
	"errors"
	"sync"
	"time"

	"github.com/i474232898/route-weather/internal/metrics"
)

var (
	// ErrNotFound is returned when no live entry exists for a key.
	ErrNotFound = errors.New("no entry for key")
)

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache with a per-entry TTL and
// least-recently-used eviction once maxEntries is reached.
type MemoryStore[V any] struct {
	mu sync.Mutex

	name  string
	items map[string]*list.Element
	order *list.List // front = most recently used

	// retention configuration
	maxEntries int           // 0 = unlimited
	ttl        time.Duration // 0 = never expires

	now func() time.Time
}

// NewMemoryStore creates a new MemoryStore. name labels eviction metrics.
func NewMemoryStore[V any](name string, maxEntries int, ttl time.Duration) *MemoryStore[V] {
	return &MemoryStore[V]{
		name:       name,
		items:      make(map[string]*list.Element),
		order:      list.New(),
		maxEntries: maxEntries,
		ttl:        ttl,
		now:        time.Now,
	}
}

// Put stores value under key, refreshing its TTL and recency.
func (s *MemoryStore[V]) Put(key string, value V) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	if el, ok := s.items[key]; ok {
		e := el.Value.(*entry[V])
		e.value = value
		e.expiresAt = expiresAt
		s.order.MoveToFront(el)
		return
	}

	s.items[key] = s.order.PushFront(&entry[V]{key: key, value: value, expiresAt: expiresAt})

	// Enforce retention by count.
	for s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		s.remove(s.order.Back())
		metrics.CacheEvictions.WithLabelValues(s.name, "capacity").Inc()
	}
}

// Get returns the live value for key. Expired entries are dropped on read.
func (s *MemoryStore[V]) Get(key string) (V, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero V
	el, ok := s.items[key]
	if !ok {
		return zero, ErrNotFound
	}

	e := el.Value.(*entry[V])
	if s.expired(e) {
		s.remove(el)
		metrics.CacheEvictions.WithLabelValues(s.name, "expired").Inc()
		return zero, ErrNotFound
	}

	s.order.MoveToFront(el)
	return e.value, nil
}

// Prune removes every expired entry and reports how many were dropped.
func (s *MemoryStore[V]) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for el := s.order.Back(); el != nil; {
		prev := el.Prev()
		if s.expired(el.Value.(*entry[V])) {
			s.remove(el)
			removed++
		}
		el = prev
	}
	if removed > 0 {
		metrics.CacheEvictions.WithLabelValues(s.name, "expired").Add(float64(removed))
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet pruned.
func (s *MemoryStore[V]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

// Name returns the store's metric label.
func (s *MemoryStore[V]) Name() string {
	return s.name
}

func (s *MemoryStore[V]) expired(e *entry[V]) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

func (s *MemoryStore[V]) remove(el *list.Element) {
	e := el.Value.(*entry[V])
	delete(s.items, e.key)
	s.order.Remove(el)
}
