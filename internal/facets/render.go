package facets

// IDTranslator maps a backing-store site id to the feature id the map
// renderer knows. ok=false drops the id.
type IDTranslator interface {
	FeatureID(siteID int64) (any, bool)
}

type IdentityTranslator struct{}

func (IdentityTranslator) FeatureID(id int64) (any, bool) { return id, true }

// TranslatorFunc adapts a function to IDTranslator.
type TranslatorFunc func(int64) (any, bool)

func (f TranslatorFunc) FeatureID(id int64) (any, bool) { return f(id) }

// MapFilter turns a Result into a MapLibre filter expression. It returns nil
// when the result is unconstrained, which clears the layer filter. An empty
// allow-list still yields an expression so nothing is drawn.
func MapFilter(r Result, tr IDTranslator) []any {
	if r.Unconstrained {
		return nil
	}
	if tr == nil {
		tr = IdentityTranslator{}
	}
	ids := make([]any, 0, len(r.IDs))
	for _, id := range r.IDs {
		if fid, ok := tr.FeatureID(id); ok {
			ids = append(ids, fid)
		}
	}
	return []any{"in", []any{"id"}, []any{"literal", ids}}
}
