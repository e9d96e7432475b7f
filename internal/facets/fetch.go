package facets

import (
	"context"
	"net/url"

	"github.com/RoaringBitmap/roaring/roaring64"
)

// Record is one decoded JSON object from a value endpoint.
type Record = map[string]any

// ValuesQuery asks for the distinct values of one field of a relation.
type ValuesQuery struct {
	Relation  string
	Field     string
	FromTable string
	Alias     string
	Order     string
}

// CandidateQuery asks for the sites of layer matching Params on Relation.
type CandidateQuery struct {
	Layer    string
	Relation string
	Params   url.Values
}

type ValueFetcher interface {
	FetchValues(ctx context.Context, q ValuesQuery) ([]Record, error)
}

type CandidateFetcher interface {
	FetchCandidates(ctx context.Context, q CandidateQuery) (*roaring64.Bitmap, error)
}
