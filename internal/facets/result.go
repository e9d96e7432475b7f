package facets

// Result is the outcome of FilteredIDs. Unconstrained means no filter was
// active and every feature is visible; it is distinct from an empty IDs list,
// which hides everything.
type Result struct {
	Unconstrained bool
	IDs           []int64
}
