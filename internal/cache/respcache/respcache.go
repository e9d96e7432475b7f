// Package respcache is a read-through HTTP response cache keyed by request URI.
package respcache

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/mohammed-shakir/cartalex/internal/cache"
	"github.com/mohammed-shakir/cartalex/internal/cache/keys"
	"github.com/mohammed-shakir/cartalex/internal/core/observability"
)

const HeaderCache = "X-Cache"

type Cache struct {
	store     cache.Store
	opTimeout time.Duration
	log       *slog.Logger
}

// New returns a Cache over store. A nil store disables caching.
func New(store cache.Store, opTimeout time.Duration, log *slog.Logger) *Cache {
	if opTimeout <= 0 {
		opTimeout = 250 * time.Millisecond
	}
	return &Cache{store: store, opTimeout: opTimeout, log: log}
}

// Tagged caches successful GET responses under tag. Cache failures degrade
// to serving uncached.
func (c *Cache) Tagged(tag string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if c == nil || c.store == nil {
			return next
		}
		fn := func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			key := keys.Response(tag, r.URL)

			ctx, cancel := context.WithTimeout(r.Context(), c.opTimeout)
			e, ok, err := c.store.Get(ctx, key)
			cancel()
			if err != nil {
				c.log.WarnContext(r.Context(), "response cache get failed", "tag", tag, "err", err)
			}
			if ok {
				observability.IncCacheHit(tag)
				if e.ContentType != "" {
					w.Header().Set("Content-Type", e.ContentType)
				}
				w.Header().Set(HeaderCache, "HIT")
				w.WriteHeader(http.StatusOK)
				_, _ = w.Write(e.Body)
				return
			}
			observability.IncCacheMiss(tag)

			w.Header().Set(HeaderCache, "MISS")
			rec := &recorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			if rec.status() != http.StatusOK {
				return
			}

			ctx, cancel = context.WithTimeout(context.WithoutCancel(r.Context()), c.opTimeout)
			defer cancel()
			entry := cache.Entry{ContentType: w.Header().Get("Content-Type"), Body: rec.buf.Bytes()}
			if err := c.store.Set(ctx, key, tag, entry); err != nil {
				c.log.WarnContext(r.Context(), "response cache set failed", "tag", tag, "err", err)
			}
		}
		return http.HandlerFunc(fn)
	}
}

// Purge drops every cached response under tags.
func (c *Cache) Purge(ctx context.Context, tags ...string) (int, error) {
	if c == nil || c.store == nil {
		return 0, nil
	}
	return c.store.PurgeTags(ctx, tags...)
}

type recorder struct {
	http.ResponseWriter
	code int
	buf  bytes.Buffer
}

func (r *recorder) WriteHeader(code int) {
	if r.code == 0 {
		r.code = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(p []byte) (int, error) {
	if r.code == 0 {
		r.code = http.StatusOK
	}
	r.buf.Write(p)
	return r.ResponseWriter.Write(p)
}

func (r *recorder) status() int {
	if r.code == 0 {
		return http.StatusOK
	}
	return r.code
}
