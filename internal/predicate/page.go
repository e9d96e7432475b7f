package predicate

import (
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultLimit  = 50
	DefaultOffset = 0
)

type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads limit/offset. Missing, unparsable or zero limit falls back
// to DefaultLimit; negative values clamp to zero.
func ParsePage(q url.Values) Page {
	p := Page{Limit: DefaultLimit, Offset: DefaultOffset}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("limit"))); err == nil && n != 0 {
		p.Limit = max(n, 0)
	}
	if n, err := strconv.Atoi(strings.TrimSpace(q.Get("offset"))); err == nil {
		p.Offset = max(n, 0)
	}
	return p
}

// Clause renders " LIMIT $n OFFSET $n+1".
func (p Page) Clause(first int) Predicate {
	return Predicate{
		SQL:  " LIMIT $" + strconv.Itoa(first) + " OFFSET $" + strconv.Itoa(first+1),
		Args: []any{p.Limit, p.Offset},
	}
}
