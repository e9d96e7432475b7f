// Package tagindex tracks which cached response keys belong to a route tag
// so a table change can purge every dependent response.
package tagindex

import (
	"context"
	"fmt"
	"time"

	"github.com/mohammed-shakir/cartalex/internal/cache/keys"
	"github.com/mohammed-shakir/cartalex/internal/cache/redisstore"
)

type TagIndex interface {
	Add(ctx context.Context, tag, key string, ttl time.Duration) error
	// Take returns the keys indexed under tag and forgets them.
	Take(ctx context.Context, tag string) ([]string, error)
}

type redisTagIndex struct {
	cli *redisstore.Client
}

func NewRedisIndex(cli *redisstore.Client) TagIndex {
	return &redisTagIndex{cli: cli}
}

// Add indexes key under tag. The set outlives its members by one ttl so it
// never expires before an entry it points at.
func (ti *redisTagIndex) Add(ctx context.Context, tag, key string, ttl time.Duration) error {
	if err := ti.cli.SAddWithTTL(ctx, keys.Tag(tag), 2*ttl, key); err != nil {
		return fmt.Errorf("tagindex add %q: %w", tag, err)
	}
	return nil
}

func (ti *redisTagIndex) Take(ctx context.Context, tag string) ([]string, error) {
	set := keys.Tag(tag)
	members, err := ti.cli.SMembers(ctx, set)
	if err != nil {
		return nil, fmt.Errorf("tagindex members %q: %w", tag, err)
	}
	if _, err := ti.cli.Del(ctx, set); err != nil {
		return nil, fmt.Errorf("tagindex drop %q: %w", tag, err)
	}
	return members, nil
}
