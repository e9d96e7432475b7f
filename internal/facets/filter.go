package facets

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sort"

	"github.com/RoaringBitmap/roaring/roaring64"
	"golang.org/x/sync/errgroup"

	mylog "github.com/mohammed-shakir/cartalex/internal/logger"
)

// Filter groups SubFilters that are queried together against one relation.
type Filter struct {
	Name     string
	Infos    string
	Relation string

	subs   []*SubFilter
	byName map[string]*SubFilter
}

func NewFilter(c FilterConfig) (*Filter, error) {
	relation := c.Relation
	if relation == "" {
		relation = c.Name
	}
	f := &Filter{
		Name:     c.Name,
		Infos:    c.Infos,
		Relation: relation,
		byName:   make(map[string]*SubFilter, len(c.SubFilters)),
	}
	for _, sc := range c.SubFilters {
		if _, dup := f.byName[sc.Name]; dup {
			return nil, fmt.Errorf("filter %q: duplicate subfilter %q", c.Name, sc.Name)
		}
		s := NewSubFilter(sc)
		f.subs = append(f.subs, s)
		f.byName[s.Name] = s
	}
	return f, nil
}

// SubFilters returns the SubFilters in declaration order.
func (f *Filter) SubFilters() []*SubFilter {
	out := make([]*SubFilter, len(f.subs))
	copy(out, f.subs)
	return out
}

func (f *Filter) SubFilter(name string) (*SubFilter, bool) {
	s, ok := f.byName[name]
	return s, ok
}

// Active reports whether any SubFilter has a selection.
func (f *Filter) Active() bool {
	for _, s := range f.subs {
		if s.hasSelection() {
			return true
		}
	}
	return false
}

// Selections encodes every non-empty SubFilter selection as query parameters.
func (f *Filter) Selections() url.Values {
	q := url.Values{}
	for _, s := range f.subs {
		if s.hasSelection() {
			s.encode(q)
		}
	}
	return q
}

// InitSubFilters populates every SubFilter concurrently. A failing SubFilter
// keeps an unpopulated store; the failure is logged and never returned.
func (f *Filter) InitSubFilters(ctx context.Context, vf ValueFetcher, log *slog.Logger) {
	ctx = mylog.WithComponent(ctx, "facets")
	var g errgroup.Group
	for _, s := range f.subs {
		g.Go(func() error {
			if err := s.Populate(ctx, vf); err != nil {
				log.WarnContext(ctx, "subfilter values unavailable",
					"filter", f.Name, "subfilter", s.Name, "err", err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// SelectedFeatures fetches the candidate set for the current selections.
func (f *Filter) SelectedFeatures(ctx context.Context, cf CandidateFetcher, layer string) (*roaring64.Bitmap, error) {
	return f.fetch(ctx, cf, layer, f.Selections())
}

func (f *Filter) fetch(ctx context.Context, cf CandidateFetcher, layer string, sel url.Values) (*roaring64.Bitmap, error) {
	bm, err := cf.FetchCandidates(ctx, CandidateQuery{Layer: layer, Relation: f.Relation, Params: sel})
	if err != nil {
		return nil, fmt.Errorf("filter %s: %w", f.Name, err)
	}
	return bm, nil
}

func sortedFilters(m map[string]*Filter, keep func(*Filter) bool) []*Filter {
	out := make([]*Filter, 0, len(m))
	for _, f := range m {
		if keep == nil || keep(f) {
			out = append(out, f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
