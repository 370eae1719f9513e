package pipeline

import (
	"sync"

	"github.com/datagora/openhours/internal/schedule"
)

// Stats aggregates verdicts across a run. Safe for concurrent workers.
type Stats struct {
	mu sync.Mutex

	Total         int
	Identical     int
	Different     int
	NotComparable int
	Failed        int
}

// RecordVerdict counts one compared facility.
func (s *Stats) RecordVerdict(status schedule.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Total++
	switch status {
	case schedule.StatusIdentical:
		s.Identical++
	case schedule.StatusDifferent:
		s.Different++
	case schedule.StatusNotComparable:
		s.NotComparable++
	}
}

// RecordFailure counts a facility whose pipeline failed before a verdict.
func (s *Stats) RecordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Total++
	s.Failed++
}

// Snapshot returns a copy safe to read after workers finish.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Total:         s.Total,
		Identical:     s.Identical,
		Different:     s.Different,
		NotComparable: s.NotComparable,
		Failed:        s.Failed,
	}
}
