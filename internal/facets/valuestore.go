package facets

// ValueStore holds the distinct values of a SubFilter. It is written once by
// a successful fetch and read-only afterwards.
type ValueStore struct {
	records   []Record
	populated bool
}

func newValueStore(records []Record) ValueStore {
	if records == nil {
		records = []Record{}
	}
	return ValueStore{records: records, populated: true}
}

func (v ValueStore) Populated() bool { return v.populated }

func (v ValueStore) Len() int { return len(v.records) }

func (v ValueStore) Records() []Record {
	out := make([]Record, len(v.records))
	copy(out, v.records)
	return out
}
