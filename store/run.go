package store

// Run is one pipeline execution over a facility list.
type Run struct {
	ID         string
	StartedTs  int64
	FinishedTs int64

	// Aggregated verdict counts, filled when the run finishes.
	Total         int
	Identical     int
	Different     int
	NotComparable int
	Failed        int

	Notes string
}

// FindRun filters run listings. Nil fields match everything; results come
// newest first.
type FindRun struct {
	ID    *string
	Limit *int
}

// UpdateRun finalizes a run.
type UpdateRun struct {
	ID         string
	FinishedTs *int64

	Total         *int
	Identical     *int
	Different     *int
	NotComparable *int
	Failed        *int
	Notes         *string
}
