// Package predicate builds parameterized SQL predicates from filter request parameters.
package predicate

import (
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
)

const (
	// Sep separates values inside one parameter and column from threshold in range payloads.
	Sep = "|"

	floorSuffix = "floor"
	ceilSuffix  = "ceil"
)

// reserved parameters never turn into predicates
var reserved = map[string]bool{
	"limit":  true,
	"offset": true,
}

// Threshold is a numeric range bound, integral when possible.
type Threshold struct {
	Int     int64
	Float   float64
	IsFloat bool
}

func (t Threshold) Value() any {
	if t.IsFloat {
		return t.Float
	}
	return t.Int
}

func (t Threshold) String() string {
	if t.IsFloat {
		return strconv.FormatFloat(t.Float, 'f', -1, 64)
	}
	return strconv.FormatInt(t.Int, 10)
}

func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Threshold{Int: n}, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Threshold{}, err
	}
	return Threshold{Float: f, IsFloat: true}, nil
}

// Range constrains one column. Table is empty for bare floor/ceil parameters.
type Range struct {
	Table  string
	Column string
	Floor  *Threshold
	Ceil   *Threshold
}

// Params is the validated, parsed form of a filter request.
type Params struct {
	Equality map[string][]string
	Ranges   map[string]Range
}

func (p Params) Empty() bool {
	return len(p.Equality) == 0 && len(p.Ranges) == 0
}

// ParseParams splits q into membership and range conditions. Keys listed in
// skip are ignored in addition to the pagination keys.
func ParseParams(q url.Values, skip ...string) (Params, error) {
	p := Params{
		Equality: map[string][]string{},
		Ranges:   map[string]Range{},
	}
	ignore := make(map[string]bool, len(skip))
	for _, s := range skip {
		ignore[s] = true
	}

	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] || ignore[key] {
			continue
		}
		table, kind, isRange := rangeParam(key)
		if isRange {
			for _, raw := range q[key] {
				if err := p.addRange(key, table, kind, raw); err != nil {
					return Params{}, err
				}
			}
			continue
		}

		if err := checkColumn(key, key); err != nil {
			return Params{}, err
		}
		vals := splitValues(q[key])
		if len(vals) == 0 {
			continue
		}
		p.Equality[key] = vals
	}
	return p, nil
}

// rangeParam recognizes "floor", "ceil", "<table>.floor" and "<table>.ceil".
func rangeParam(key string) (table, kind string, ok bool) {
	for _, suffix := range []string{floorSuffix, ceilSuffix} {
		switch {
		case key == suffix:
			return "", suffix, true
		case strings.HasSuffix(key, "."+suffix):
			return strings.TrimSuffix(key, "."+suffix), suffix, true
		}
	}
	return "", "", false
}

func (p *Params) addRange(key, table, kind, raw string) error {
	col, thr, found := strings.Cut(raw, Sep)
	if !found {
		return apierr.Validation(key, "expected column%sthreshold, got %q", Sep, raw)
	}
	col = strings.TrimSpace(col)
	if col == "" {
		return apierr.Validation(key, "missing column before %q", Sep)
	}
	if err := checkIdent(key, col); err != nil {
		return err
	}
	if table != "" {
		if err := checkIdent(key, table); err != nil {
			return err
		}
	}
	t, err := ParseThreshold(thr)
	if err != nil {
		return apierr.Validation(key, "threshold %q is not a number", thr)
	}

	ref := col
	if table != "" {
		ref = table + "." + col
	}
	r, ok := p.Ranges[ref]
	if !ok {
		r = Range{Table: table, Column: col}
	}
	if kind == floorSuffix {
		r.Floor = &t
	} else {
		r.Ceil = &t
	}
	p.Ranges[ref] = r
	return nil
}

func splitValues(raw []string) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range raw {
		for _, v := range strings.Split(r, Sep) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
