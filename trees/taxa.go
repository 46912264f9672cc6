package trees

// TaxonID is a dense identifier assigned to a taxon label on first sighting.
// IDs are shared across all trees of one Set and never reused for a different
// label within it.
type TaxonID = uint32

// TaxonTable is an append-only bijection between taxon labels and dense ids,
// scoped to a single Set. There is no process-global interning; two sets may
// assign different ids to the same label.
type TaxonTable struct {
	labels []string
	index  map[string]TaxonID
}

// NewTaxonTable creates an empty taxon table.
func NewTaxonTable() *TaxonTable {
	return &TaxonTable{
		index: make(map[string]TaxonID),
	}
}

// Intern returns the id of label, assigning the next dense id on first
// sighting.
func (t *TaxonTable) Intern(label string) TaxonID {
	if id, ok := t.index[label]; ok {
		return id
	}

	id := TaxonID(len(t.labels))
	t.labels = append(t.labels, label)
	t.index[label] = id

	return id
}

// Lookup returns the id of label without interning it.
func (t *TaxonTable) Lookup(label string) (TaxonID, bool) {
	id, ok := t.index[label]
	return id, ok
}

// Name returns the label of id. The empty string is returned for an unknown
// id.
func (t *TaxonTable) Name(id TaxonID) string {
	if int(id) >= len(t.labels) {
		return ""
	}

	return t.labels[id]
}

// Len returns the number of distinct labels seen.
func (t *TaxonTable) Len() int {
	return len(t.labels)
}
