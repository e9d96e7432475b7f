package predicate

import (
	"net/url"
	"strings"

	"github.com/mohammed-shakir/cartalex/internal/core/apierr"
)

// Distinct describes a "distinct values" projection.
type Distinct struct {
	Field     string
	FromTable string
	Alias     string
	Order     string
}

func ParseDistinct(q url.Values) (Distinct, error) {
	d := Distinct{
		Field:     strings.TrimSpace(q.Get("field")),
		FromTable: strings.TrimSpace(q.Get("fromTable")),
		Alias:     strings.TrimSpace(q.Get("alias")),
		Order:     strings.TrimSpace(q.Get("order")),
	}
	if d.Field == "" {
		return Distinct{}, apierr.Validation("field", "required")
	}
	for name, v := range map[string]string{"field": d.Field, "fromTable": d.FromTable, "alias": d.Alias, "order": d.Order} {
		if v == "" {
			continue
		}
		if err := checkIdent(name, v); err != nil {
			return Distinct{}, err
		}
	}
	return d, nil
}

func (d Distinct) qualify(col string) string {
	if d.FromTable == "" {
		return col
	}
	return d.FromTable + "." + col
}

// Columns lists the qualified columns the projection reads.
func (d Distinct) Columns() []string {
	out := []string{d.qualify(d.Field)}
	if d.Order != "" && d.Order != d.Field {
		out = append(out, d.qualify(d.Order))
	}
	return out
}

// Select renders "SELECT DISTINCT t.field [AS alias][, t.order]".
func (d Distinct) Select() string {
	var b strings.Builder
	b.WriteString("SELECT DISTINCT ")
	b.WriteString(d.qualify(d.Field))
	if d.Alias != "" {
		b.WriteString(" AS ")
		b.WriteString(d.Alias)
	}
	// DISTINCT requires ORDER BY expressions in the select list
	if d.Order != "" && d.Order != d.Field {
		b.WriteString(", ")
		b.WriteString(d.qualify(d.Order))
	}
	return b.String()
}

// OrderBy renders " ORDER BY t.order, t.field" or, without order,
// " ORDER BY t.field". The field breaks ties so pages are stable.
func (d Distinct) OrderBy() string {
	if d.Order != "" && d.Order != d.Field {
		return " ORDER BY " + d.qualify(d.Order) + ", " + d.qualify(d.Field)
	}
	return " ORDER BY " + d.qualify(d.Field)
}
