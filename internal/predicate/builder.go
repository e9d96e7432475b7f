package predicate

import (
	"sort"
	"strconv"
	"strings"
)

// Predicate is SQL text with its positional arguments.
type Predicate struct {
	SQL  string
	Args []any
	// Columns holds the qualified column references, in emission order.
	Columns []string
}

// Where renders " WHERE <sql>" or "" for an empty predicate.
func (p Predicate) Where() string {
	if p.SQL == "" {
		return ""
	}
	return " WHERE " + p.SQL
}

// NextArg is the placeholder index following this predicate's arguments.
func (p Predicate) NextArg(first int) int {
	return first + len(p.Args)
}

// Build renders params as AND-joined conditions with $n placeholders
// starting at first. Membership conditions come first (sorted by field),
// then ranges (sorted by column, floor before ceil).
func Build(p Params, q Qualifier, first int) (Predicate, error) {
	if first < 1 {
		first = 1
	}
	b := builder{next: first}

	fields := make([]string, 0, len(p.Equality))
	for f := range p.Equality {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		vals := p.Equality[f]
		if len(vals) == 0 {
			continue
		}
		col, err := q.Qualify(f)
		if err != nil {
			return Predicate{}, err
		}
		b.in(col, vals)
	}

	refs := make([]string, 0, len(p.Ranges))
	for r := range p.Ranges {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	for _, ref := range refs {
		r := p.Ranges[ref]
		col, err := rangeColumn(r, q)
		if err != nil {
			return Predicate{}, err
		}
		if r.Floor != nil {
			b.cmp(col, ">=", r.Floor.Value())
		}
		if r.Ceil != nil {
			b.cmp(col, "<=", r.Ceil.Value())
		}
	}

	return Predicate{SQL: strings.Join(b.conds, " AND "), Args: b.args, Columns: b.cols}, nil
}

// explicit tables win; bare floor/ceil columns go through the qualifier
func rangeColumn(r Range, q Qualifier) (string, error) {
	if r.Table != "" {
		return r.Table + "." + r.Column, nil
	}
	return q.Qualify(r.Column)
}

type builder struct {
	conds []string
	cols  []string
	args  []any
	next  int
}

func (b *builder) placeholder(v any) string {
	b.args = append(b.args, v)
	ph := "$" + strconv.Itoa(b.next)
	b.next++
	return ph
}

func (b *builder) in(col string, vals []string) {
	phs := make([]string, len(vals))
	for i, v := range vals {
		phs[i] = b.placeholder(v)
	}
	b.conds = append(b.conds, col+" IN ("+strings.Join(phs, ", ")+")")
	b.cols = append(b.cols, col)
}

func (b *builder) cmp(col, op string, v any) {
	b.conds = append(b.conds, col+" "+op+" "+b.placeholder(v))
	b.cols = append(b.cols, col)
}
