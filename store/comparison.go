package store

// ComparisonRecord is the persisted outcome of one facility within a run:
// what was fetched, what the model extracted, both opening-hours strings and
// the comparison verdict. Failed stages leave their downstream columns empty
// and the error column set.
type ComparisonRecord struct {
	UID   string
	RunID string

	FacilityID   string
	Name         string
	FacilityType string
	URL          string

	FetchStatus   string
	Markdown      string
	ExtractedJSON string
	EncodedOSM    string
	ReferenceOSM  string

	Verdict  string
	DiffJSON string
	Error    string

	CreatedTs int64
}

// FindComparison filters comparison listings. Nil fields match everything;
// results come newest first.
type FindComparison struct {
	UID          *string
	RunID        *string
	FacilityID   *string
	FacilityType *string
	Verdict      *string
	Limit        *int
}

// DeleteComparison prunes comparison records.
type DeleteComparison struct {
	RunID    *string
	BeforeTs *int64
}
