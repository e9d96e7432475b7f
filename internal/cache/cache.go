// Package cache defines the response cache used by the read endpoints.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
)

// Entry is one cached response. Body holds the exact bytes written on the
// miss so hits are byte-identical.
type Entry struct {
	ContentType string `json:"ct"`
	Body        []byte `json:"body"`
}

// Store is a tag-aware response cache. Entries share the store's fixed TTL.
type Store interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key, tag string, e Entry) error
	// PurgeTags drops every entry stored under any of tags and returns how
	// many entries were removed.
	PurgeTags(ctx context.Context, tags ...string) (int, error)
	Close() error
}

func Encode(e Entry) ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode cache entry: %w", err)
	}
	return b, nil
}

func Decode(raw []byte) (Entry, error) {
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, fmt.Errorf("decode cache entry: %w", err)
	}
	return e, nil
}
