package facets

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
)

var ErrNotPopulated = errors.New("value store not populated")

// SubFilter is one selectable field of a Filter. Name is the candidate
// query parameter; Field is the column its distinct values are read from.
type SubFilter struct {
	Name      string
	Alias     string
	IsNumeric bool

	// where the distinct values come from
	Field     string
	Relation  string
	FromTable string
	Order     string

	// RangeTable qualifies floor/ceil bounds; empty sends bare bounds.
	RangeTable string

	values   ValueStore
	selected map[string]struct{}
}

func NewSubFilter(c SubFilterConfig) *SubFilter {
	s := &SubFilter{
		Name:       c.Name,
		IsNumeric:  c.Numeric,
		Field:      c.Field,
		Relation:   c.Values,
		FromTable:  c.FromTable,
		Order:      c.Order,
		RangeTable: c.RangeTable,
		selected:   map[string]struct{}{},
	}
	if s.Field == "" {
		s.Field = c.Name
	}
	if c.Alias != nil {
		s.Alias = *c.Alias
	}
	return s
}

// Label is the heading and value key shown for the SubFilter.
func (s *SubFilter) Label() string {
	if s.Alias != "" {
		return s.Alias
	}
	return s.Name
}

// MemberSep joins membership values on the wire, so no checked value may
// contain it.
const MemberSep = "|"

// CheckValue selects v. A value containing MemberSep is rejected: the server
// would split it and widen the facet.
func (s *SubFilter) CheckValue(v string) error {
	if strings.Contains(v, MemberSep) {
		return apierr.Validation(s.Name, "value %q contains %q", v, MemberSep)
	}
	s.selected[v] = struct{}{}
	return nil
}

func (s *SubFilter) UncheckValue(v string) { delete(s.selected, v) }

// SelectedValues returns the selection sorted ascending. Empty means the
// SubFilter does not constrain anything.
func (s *SubFilter) SelectedValues() []string {
	out := make([]string, 0, len(s.selected))
	for v := range s.selected {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func (s *SubFilter) hasSelection() bool { return len(s.selected) > 0 }

// Values returns the stored values, or a FetchError when the store was never
// populated.
func (s *SubFilter) Values() ([]Record, error) {
	if !s.values.Populated() {
		return nil, apierr.Fetch("values", s.Relation+"/"+s.Field, ErrNotPopulated)
	}
	return s.values.Records(), nil
}

// Populate fetches the value store once. Later calls after a success are
// no-ops.
func (s *SubFilter) Populate(ctx context.Context, f ValueFetcher) error {
	if s.values.Populated() {
		return nil
	}
	recs, err := f.FetchValues(ctx, ValuesQuery{
		Relation:  s.Relation,
		Field:     s.Field,
		FromTable: s.FromTable,
		Alias:     s.Alias,
		Order:     s.Order,
	})
	if err != nil {
		return fmt.Errorf("populate %s: %w", s.Name, err)
	}
	s.values = newValueStore(recs)
	return nil
}

// encode appends the SubFilter's selection to q. Numeric selections of the
// form ">=N" or "<=N" become floor/ceil bounds on Field qualified by
// RangeTable; the tightest bound of each kind wins.
func (s *SubFilter) encode(q url.Values) {
	var members []string
	var floor, ceil *float64
	var floorRaw, ceilRaw string
	for _, v := range s.SelectedValues() {
		if s.IsNumeric {
			if n, raw, ok := bound(v, ">="); ok {
				if floor == nil || n > *floor {
					floor, floorRaw = &n, raw
				}
				continue
			}
			if n, raw, ok := bound(v, "<="); ok {
				if ceil == nil || n < *ceil {
					ceil, ceilRaw = &n, raw
				}
				continue
			}
		}
		members = append(members, v)
	}
	if len(members) > 0 {
		q.Add(s.Name, strings.Join(members, MemberSep))
	}
	prefix := ""
	if s.RangeTable != "" {
		prefix = s.RangeTable + "."
	}
	if floor != nil {
		q.Add(prefix+"floor", s.Field+"|"+floorRaw)
	}
	if ceil != nil {
		q.Add(prefix+"ceil", s.Field+"|"+ceilRaw)
	}
}

func bound(v, op string) (float64, string, bool) {
	raw, ok := strings.CutPrefix(strings.TrimSpace(v), op)
	if !ok {
		return 0, "", false
	}
	raw = strings.TrimSpace(raw)
	n, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, "", false
	}
	return n, raw, true
}
