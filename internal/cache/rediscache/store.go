// Package rediscache is the Redis-backed response cache.
package rediscache

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/cartalex/internal/cache"
	"github.com/mohammed-shakir/cartalex/internal/cache/redisstore"
	"github.com/mohammed-shakir/cartalex/internal/cache/tagindex"
)

type Store struct {
	cli  *redisstore.Client
	tags tagindex.TagIndex
	ttl  time.Duration
}

var _ cache.Store = (*Store)(nil)

func New(cli *redisstore.Client, ttl time.Duration) *Store {
	return &Store{cli: cli, tags: tagindex.NewRedisIndex(cli), ttl: ttl}
}

func (s *Store) Get(ctx context.Context, key string) (cache.Entry, bool, error) {
	raw, ok, err := s.cli.Get(ctx, key)
	if err != nil || !ok {
		return cache.Entry{}, false, err
	}
	e, err := cache.Decode(raw)
	if err != nil {
		return cache.Entry{}, false, err
	}
	return e, true, nil
}

func (s *Store) Set(ctx context.Context, key, tag string, e cache.Entry) error {
	raw, err := cache.Encode(e)
	if err != nil {
		return err
	}
	if err := s.cli.Set(ctx, key, raw, s.ttl); err != nil {
		return err
	}
	return s.tags.Add(ctx, tag, key, s.ttl)
}

func (s *Store) PurgeTags(ctx context.Context, tags ...string) (int, error) {
	purged := 0
	for _, tag := range tags {
		members, err := s.tags.Take(ctx, tag)
		if err != nil {
			return purged, err
		}
		n, err := s.cli.Del(ctx, members...)
		if err != nil {
			return purged, fmt.Errorf("purge %q: %w", tag, err)
		}
		purged += n
	}
	return purged, nil
}

func (s *Store) Close() error { return s.cli.Close() }
