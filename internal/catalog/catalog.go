// Package catalog declares the relations the HTTP API can query: their SQL
// skeletons, the columns a request may reference, and the tables they read.
package catalog

import (
	"slices"
	"sort"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
	"github.com/mohammed-shakir/cartalex/internal/predicate"
)

// Cache tags group cached responses by the route family that produced them.
const (
	TagInfos   = "infos"
	TagDetails = "details"
	TagZones   = "zones"
)

func ValuesTag(name string) string     { return "values/" + name }
func CandidatesTag(name string) string { return "candidates/" + name }

// ValueSource backs a /getValues/{relation} route.
type ValueSource struct {
	Name   string
	From   string
	Tables []string
}

// CandidateSource backs a /{layer}/{relation} route. Query must project the
// site identifier as site_id.
type CandidateSource struct {
	Name      string
	Query     string
	Suffix    string
	Qualifier predicate.Qualifier
	Columns   []string
	Tables    []string
}

type Catalog struct {
	layer      string
	tables     map[string][]string
	values     map[string]ValueSource
	candidates map[string]CandidateSource
	infos      CandidateSource
}

func (c *Catalog) Layer() string { return c.layer }

func (c *Catalog) Values(name string) (ValueSource, error) {
	s, ok := c.values[name]
	if !ok {
		return ValueSource{}, apierr.NotFound("relation", name)
	}
	return s, nil
}

func (c *Catalog) Candidates(name string) (CandidateSource, error) {
	s, ok := c.candidates[name]
	if !ok {
		return CandidateSource{}, apierr.NotFound("relation", name)
	}
	return s, nil
}

func (c *Catalog) Infos() CandidateSource { return c.infos }

// HasTable reports whether table is part of the backing schema.
func (c *Catalog) HasTable(table string) bool {
	_, ok := c.tables[table]
	return ok
}

// ValuesSQL validates d against src and renders the full paginated query.
func (c *Catalog) ValuesSQL(src ValueSource, d predicate.Distinct, page predicate.Page) (string, []any, error) {
	if err := c.checkDistinct(src, d); err != nil {
		return "", nil, err
	}
	pg := page.Clause(1)
	return d.Select() + src.From + d.OrderBy() + pg.SQL, pg.Args, nil
}

func (c *Catalog) checkDistinct(src ValueSource, d predicate.Distinct) error {
	cols := []string{d.Field}
	if d.Order != "" && d.Order != d.Field {
		cols = append(cols, d.Order)
	}

	if d.FromTable != "" {
		if !slices.Contains(src.Tables, d.FromTable) {
			return apierr.Validation("fromTable", "relation %q does not join table %q", src.Name, d.FromTable)
		}
		for _, col := range cols {
			if !slices.Contains(c.tables[d.FromTable], col) {
				return apierr.Validation("field", "table %q has no column %q", d.FromTable, col)
			}
		}
		return nil
	}

	for _, col := range cols {
		n := 0
		for _, t := range src.Tables {
			if slices.Contains(c.tables[t], col) {
				n++
			}
		}
		switch {
		case n == 0:
			return apierr.Validation("field", "relation %q has no column %q", src.Name, col)
		case n > 1:
			return apierr.Validation("field", "column %q is ambiguous in relation %q; set fromTable", col, src.Name)
		}
	}
	return nil
}

// SQL renders the candidate query for p, rejecting columns the source does not expose.
func (s CandidateSource) SQL(p predicate.Params, page predicate.Page) (string, []any, error) {
	pred, err := predicate.Build(p, s.Qualifier, 1)
	if err != nil {
		return "", nil, err
	}
	for _, col := range pred.Columns {
		if !slices.Contains(s.Columns, col) {
			return "", nil, apierr.Validation(col, "relation %q cannot be filtered on %q", s.Name, col)
		}
	}
	pg := page.Clause(pred.NextArg(1))
	args := append(pred.Args, pg.Args...)
	return s.Query + pred.Where() + s.Suffix + pg.SQL, args, nil
}

// Dependents returns the cache tags whose responses read table, sorted.
func (c *Catalog) Dependents(table string) []string {
	set := map[string]bool{}
	for name, s := range c.values {
		if slices.Contains(s.Tables, table) {
			set[ValuesTag(name)] = true
		}
	}
	for name, s := range c.candidates {
		if slices.Contains(s.Tables, table) {
			set[CandidatesTag(name)] = true
		}
	}
	if slices.Contains(c.infos.Tables, table) {
		set[TagInfos] = true
	}
	if slices.Contains(detailsTables, table) {
		set[TagDetails] = true
	}
	if table == "sites_fouilles" {
		set[TagZones] = true
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
