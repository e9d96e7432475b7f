package facets

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"sync"

	"github.com/RoaringBitmap/roaring/roaring64"
	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	mylog "github.com/mohammed-shakir/cartalex/internal/logger"
)

// FilterCollection owns every Filter of one layer. It is not safe for
// concurrent use; one goroutine toggles selections and asks for results.
type FilterCollection struct {
	LayerName string

	cfgs       []FilterConfig
	values     ValueFetcher
	candidates CandidateFetcher
	log        *slog.Logger

	filters map[string]*Filter
}

func NewFilterCollection(layer string, cfgs []FilterConfig, vf ValueFetcher, cf CandidateFetcher, log *slog.Logger) *FilterCollection {
	if log == nil {
		log = slog.Default()
	}
	return &FilterCollection{
		LayerName:  layer,
		cfgs:       cfgs,
		values:     vf,
		candidates: cf,
		log:        log,
		filters:    map[string]*Filter{},
	}
}

// InitFilters builds the configured Filters and populates them concurrently.
// Population failures are logged; only malformed configuration is returned.
func (c *FilterCollection) InitFilters(ctx context.Context) error {
	built := make(map[string]*Filter, len(c.cfgs))
	for _, fc := range c.cfgs {
		f, err := NewFilter(fc)
		if err != nil {
			return err
		}
		if _, dup := built[f.Name]; dup {
			return fmt.Errorf("layer %s: duplicate filter %q", c.LayerName, f.Name)
		}
		built[f.Name] = f
	}
	c.filters = built

	ctx = mylog.WithLayer(ctx, c.LayerName)
	var wg sync.WaitGroup
	for _, f := range built {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.InitSubFilters(mylog.WithRelation(ctx, f.Relation), c.values, c.log)
		}()
	}
	wg.Wait()
	c.log.DebugContext(ctx, "filters initialised", "layer", c.LayerName, "filters", len(built))
	return nil
}

func (c *FilterCollection) Filters() []*Filter { return sortedFilters(c.filters, nil) }

func (c *FilterCollection) Filter(name string) (*Filter, bool) {
	f, ok := c.filters[name]
	return f, ok
}

func (c *FilterCollection) ActiveFilters() []*Filter {
	return sortedFilters(c.filters, (*Filter).Active)
}

func (c *FilterCollection) Check(filter, sub, value string) error {
	s, err := c.lookup(filter, sub)
	if err != nil {
		return err
	}
	return s.CheckValue(value)
}

func (c *FilterCollection) Uncheck(filter, sub, value string) error {
	s, err := c.lookup(filter, sub)
	if err != nil {
		return err
	}
	s.UncheckValue(value)
	return nil
}

func (c *FilterCollection) lookup(filter, sub string) (*SubFilter, error) {
	f, ok := c.filters[filter]
	if !ok {
		return nil, apierr.NotFound("filter", filter)
	}
	s, ok := f.SubFilter(sub)
	if !ok {
		return nil, apierr.NotFound("subfilter", filter+"."+sub)
	}
	return s, nil
}

// FilteredIDs intersects the candidate sets of every active Filter.
func (c *FilterCollection) FilteredIDs(ctx context.Context) (Result, error) {
	active := c.ActiveFilters()
	if len(active) == 0 {
		return Result{Unconstrained: true}, nil
	}

	// selections are read here so the fetch goroutines never touch them
	sels := make([]url.Values, len(active))
	for i, f := range active {
		sels[i] = f.Selections()
	}

	sets := make([]*roaring64.Bitmap, len(active))
	g, gctx := errgroup.WithContext(ctx)
	for i, f := range active {
		g.Go(func() error {
			bm, err := f.fetch(gctx, c.candidates, c.LayerName, sels[i])
			if err != nil {
				return err
			}
			sets[i] = bm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if !apierr.IsFetch(err) {
			err = apierr.Fetch("candidates", c.LayerName, err)
		}
		return Result{}, err
	}

	return Result{IDs: intersect(sets)}, nil
}

// intersect starts from the smallest set so the work is bounded by it.
func intersect(sets []*roaring64.Bitmap) []int64 {
	pivot := 0
	for i, s := range sets {
		if s == nil {
			sets[i] = roaring64.New()
			s = sets[i]
		}
		if s.GetCardinality() < sets[pivot].GetCardinality() {
			pivot = i
		}
	}
	out := sets[pivot].Clone()
	for i, s := range sets {
		if i == pivot || out.IsEmpty() {
			continue
		}
		out.And(s)
	}
	ids := make([]int64, 0, out.GetCardinality())
	it := out.Iterator()
	for it.HasNext() {
		ids = append(ids, int64(it.Next()))
	}
	return ids
}
