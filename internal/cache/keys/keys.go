// Package keys derives the Redis and in-memory keys of cached site API
// responses and of the per-tag sets that index them.
package keys

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

const (
	namespace = "cartalex"
	sep       = ":"
)

// Response keys a response by route tag and request URI. The query is
// re-encoded in sorted order first, so /vestiges?a=1&b=2 and
// /vestiges?b=2&a=1 share an entry.
func Response(tag string, u *url.URL) string {
	d := xxhash.New()
	_, _ = d.WriteString(u.EscapedPath())
	if q := u.Query(); len(q) > 0 {
		_, _ = d.WriteString("?")
		_, _ = d.WriteString(q.Encode())
	}
	sum := strconv.FormatUint(d.Sum64(), 16)
	if n := 16 - len(sum); n > 0 {
		sum = strings.Repeat("0", n) + sum
	}
	return namespace + sep + sanitize(tag) + sep + sum
}

// Tag is the key of the set holding every response key stored under tag.
func Tag(tag string) string {
	return namespace + sep + "tag" + sep + sanitize(tag)
}

// sanitize keeps tags printable ASCII: ASCII letters, digits and '/' pass,
// whitespace becomes '_', anything else becomes '-', and runs of '_' or '-'
// collapse to one.
func sanitize(tag string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', '0' <= r && r <= '9':
			return r
		case r == '/', r == '_', r == '-':
			return r
		case r == ' ', '\t' <= r && r <= '\r':
			return '_'
		}
		return '-'
	}, strings.TrimSpace(tag))

	var b strings.Builder
	b.Grow(len(mapped))
	var last byte
	for i := 0; i < len(mapped); i++ {
		c := mapped[i]
		if (c == '_' || c == '-') && c == last {
			continue
		}
		b.WriteByte(c)
		last = c
	}
	return b.String()
}
