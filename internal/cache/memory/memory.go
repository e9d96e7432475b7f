// Package memory is the in-process response cache: a size-bounded LRU whose
// entries expire after a fixed TTL.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/cartalex/internal/cache"
	"github.com/mohammed-shakir/cartalex/internal/core/observability"
)

const backend = "memory"

type item struct {
	entry cache.Entry
	tag   string
}

type Store struct {
	lru *expirable.LRU[string, item]

	// write serializes Set against PurgeTags so an entry is never stored
	// unindexed by a purge that ran in between.
	write sync.Mutex

	mu   sync.Mutex
	tags map[string]map[string]struct{}
}

var _ cache.Store = (*Store)(nil)

func New(size int, ttl time.Duration) *Store {
	if size <= 0 {
		size = 1024
	}
	s := &Store{tags: map[string]map[string]struct{}{}}
	// The eviction callback runs under the LRU lock; s.mu is never held
	// while calling into the LRU. s.write may be.
	s.lru = expirable.NewLRU[string, item](size, s.forget, ttl)
	return s
}

func (s *Store) forget(key string, it item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.tags[it.tag]; ok {
		delete(set, key)
		if len(set) == 0 {
			delete(s.tags, it.tag)
		}
	}
}

func (s *Store) Get(_ context.Context, key string) (cache.Entry, bool, error) {
	start := time.Now()
	it, ok := s.lru.Get(key)
	observability.ObserveCacheOp(backend, "get", nil, time.Since(start).Seconds())
	return it.entry, ok, nil
}

func (s *Store) Set(_ context.Context, key, tag string, e cache.Entry) error {
	start := time.Now()
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.Lock()
	set, ok := s.tags[tag]
	if !ok {
		set = map[string]struct{}{}
		s.tags[tag] = set
	}
	set[key] = struct{}{}
	s.mu.Unlock()

	s.lru.Add(key, item{entry: e, tag: tag})

	observability.ObserveCacheOp(backend, "set", nil, time.Since(start).Seconds())
	return nil
}

func (s *Store) PurgeTags(_ context.Context, tags ...string) (int, error) {
	start := time.Now()
	s.write.Lock()
	defer s.write.Unlock()

	var victims []string
	s.mu.Lock()
	for _, tag := range tags {
		for k := range s.tags[tag] {
			victims = append(victims, k)
		}
		delete(s.tags, tag)
	}
	s.mu.Unlock()

	purged := 0
	for _, k := range victims {
		if s.lru.Remove(k) {
			purged++
		}
	}
	observability.ObserveCacheOp(backend, "purge", nil, time.Since(start).Seconds())
	return purged, nil
}

func (s *Store) Len() int { return s.lru.Len() }

func (s *Store) Close() error {
	s.lru.Purge()
	return nil
}
