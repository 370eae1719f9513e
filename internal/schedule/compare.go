package schedule

import (
	"strings"
)

// Status is the overall verdict of a comparison.
type Status string

// Comparison verdicts.
const (
	StatusIdentical     Status = "identical"
	StatusDifferent     Status = "different"
	StatusNotComparable Status = "not_comparable"
)

// DiffKind classifies a single recorded difference.
type DiffKind string

// Difference kinds.
const (
	// DiffClosureChanged reports a permanent-closure mismatch.
	DiffClosureChanged DiffKind = "closure_changed"
	// DiffMissingData reports that one side supplied no information for a
	// period the other side populated. The period is not comparable.
	DiffMissingData DiffKind = "missing_data"
	// DiffStatusChanged reports an open/closed flip for a day or date.
	DiffStatusChanged DiffKind = "status_changed"
	// DiffModeChanged reports a change of a period-wide default mode.
	DiffModeChanged DiffKind = "mode_changed"
	// DiffSlotAdded reports a slot present only on the right side.
	DiffSlotAdded DiffKind = "slot_added"
	// DiffSlotRemoved reports a slot present only on the left side.
	DiffSlotRemoved DiffKind = "slot_removed"
	// DiffSlotChanged reports a slot whose span matches but whose
	// occurrence set changed.
	DiffSlotChanged DiffKind = "slot_changed"
	// DiffEntryAdded reports an exception entry present only on the right.
	DiffEntryAdded DiffKind = "entry_added"
	// DiffEntryRemoved reports an exception entry present only on the left.
	DiffEntryRemoved DiffKind = "entry_removed"
)

// Difference is one recorded divergence between two schedules.
type Difference struct {
	Period PeriodKey `json:"period"`
	Day    string    `json:"day,omitempty"`
	Kind   DiffKind  `json:"kind"`
	Before string    `json:"before,omitempty"`
	After  string    `json:"after,omitempty"`
}

// ComparisonResult is the outcome of comparing two schedules: an overall
// verdict plus the ordered list of recorded differences.
type ComparisonResult struct {
	Status      Status       `json:"status"`
	Differences []Difference `json:"differences,omitempty"`
}

// Compare walks two schedules period-by-period and day-by-day and reports
// whether they describe the same opening pattern. Both sides are normalized
// first, so slot order, occurrence representation and absent-vs-empty
// periods never produce spurious differences.
func Compare(a, b *Schedule) ComparisonResult {
	left := Normalize(a)
	right := Normalize(b)

	// Permanent closure dominates everything else.
	if left.Extraction.PermanentlyClosed || right.Extraction.PermanentlyClosed {
		if left.Extraction.PermanentlyClosed && right.Extraction.PermanentlyClosed {
			return ComparisonResult{Status: StatusIdentical}
		}
		return ComparisonResult{
			Status: StatusDifferent,
			Differences: []Difference{{
				Kind:   DiffClosureChanged,
				Before: closureLabel(left),
				After:  closureLabel(right),
			}},
		}
	}

	var diffs []Difference
	compared := 0
	notComparable := 0

	for _, key := range PeriodKeys {
		pa := left.Period(key)
		pb := right.Period(key)
		aHas := pa.Found && pa.HasContent()
		bHas := pb.Found && pb.HasContent()
		if !aHas && !bHas {
			continue
		}
		compared++

		// One side has data the other never found: the period cannot be
		// judged, and silently treating the blind side as closed would
		// fabricate a difference that may not exist.
		if aHas != bHas && (!pa.Found || !pb.Found) {
			notComparable++
			diffs = append(diffs, Difference{
				Period: key,
				Kind:   DiffMissingData,
				Before: foundLabel(pa),
				After:  foundLabel(pb),
			})
			continue
		}

		diffs = append(diffs, comparePeriod(key, pa, pb)...)
	}

	switch {
	case compared > 0 && notComparable == compared:
		return ComparisonResult{Status: StatusNotComparable, Differences: diffs}
	case len(diffs) == 0:
		return ComparisonResult{Status: StatusIdentical}
	default:
		return ComparisonResult{Status: StatusDifferent, Differences: diffs}
	}
}

func closureLabel(s *Schedule) string {
	if s.Extraction.PermanentlyClosed {
		return "permanently closed"
	}
	return "open"
}

func foundLabel(p *Period) string {
	if !p.Found {
		return "no data"
	}
	if !p.HasContent() {
		return "empty"
	}
	return "populated"
}

func comparePeriod(key PeriodKey, a, b *Period) []Difference {
	if IsWeeklyPeriod(key) {
		return compareWeekly(key, a.Weekly, b.Weekly)
	}
	return compareExceptions(key, a, b)
}

func compareWeekly(key PeriodKey, a, b *WeeklySchedule) []Difference {
	var diffs []Difference
	for d := Monday; d <= Sunday; d++ {
		diffs = append(diffs, compareDay(key, d.String(), a.Day(d), b.Day(d))...)
	}
	return diffs
}

func compareDay(key PeriodKey, label string, a, b *DaySchedule) []Difference {
	var diffs []Difference
	if a.Open != b.Open {
		diffs = append(diffs, Difference{
			Period: key,
			Day:    label,
			Kind:   DiffStatusChanged,
			Before: openLabel(a.Open),
			After:  openLabel(b.Open),
		})
	}
	diffs = append(diffs, compareSlots(key, label, a.Slots, b.Slots)...)
	return diffs
}

func openLabel(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

// compareSlots matches slots element-wise by their time span. A span present
// on both sides with a different occurrence set is a changed slot rather
// than a remove/add pair, so "1st Tuesday" becoming "1st and 3rd Tuesday"
// reads as one difference.
func compareSlots(key PeriodKey, label string, a, b []TimeSlot) []Difference {
	var diffs []Difference
	bySpan := map[string]TimeSlot{}
	for _, slot := range b {
		bySpan[slot.Span()] = slot
	}
	seen := map[string]bool{}
	for _, slot := range a {
		other, ok := bySpan[slot.Span()]
		if !ok {
			diffs = append(diffs, Difference{
				Period: key, Day: label, Kind: DiffSlotRemoved, Before: slot.String(),
			})
			continue
		}
		seen[slot.Span()] = true
		if slot.String() != other.String() {
			diffs = append(diffs, Difference{
				Period: key, Day: label, Kind: DiffSlotChanged,
				Before: slot.String(), After: other.String(),
			})
		}
	}
	for _, slot := range b {
		if _, ok := seen[slot.Span()]; ok {
			continue
		}
		if _, existed := spanIn(a, slot.Span()); existed {
			continue
		}
		diffs = append(diffs, Difference{
			Period: key, Day: label, Kind: DiffSlotAdded, After: slot.String(),
		})
	}
	return diffs
}

func spanIn(slots []TimeSlot, span string) (TimeSlot, bool) {
	for _, s := range slots {
		if s.Span() == span {
			return s, true
		}
	}
	return TimeSlot{}, false
}

func compareExceptions(key PeriodKey, a, b *Period) []Difference {
	var diffs []Difference
	if a.Mode != b.Mode {
		diffs = append(diffs, Difference{
			Period: key,
			Kind:   DiffModeChanged,
			Before: string(a.Mode),
			After:  string(b.Mode),
		})
	}

	byKey := map[string]*ExceptionEntry{}
	for i := range b.Exceptions {
		byKey[b.Exceptions[i].Key.String()] = &b.Exceptions[i]
	}
	seen := map[string]bool{}

	for i := range a.Exceptions {
		ea := &a.Exceptions[i]
		label := ea.Key.String()
		eb, ok := byKey[label]
		if !ok {
			diffs = append(diffs, Difference{
				Period: key, Day: label, Kind: DiffEntryRemoved, Before: entryLabel(ea),
			})
			continue
		}
		seen[label] = true
		if ea.Closed != eb.Closed {
			diffs = append(diffs, Difference{
				Period: key, Day: label, Kind: DiffStatusChanged,
				Before: entryLabel(ea), After: entryLabel(eb),
			})
			continue
		}
		if ea.Day != nil && eb.Day != nil {
			diffs = append(diffs, compareDay(key, label, ea.Day, eb.Day)...)
		}
	}

	for i := range b.Exceptions {
		eb := &b.Exceptions[i]
		label := eb.Key.String()
		if seen[label] || a.Entry(eb.Key) != nil {
			continue
		}
		diffs = append(diffs, Difference{
			Period: key, Day: label, Kind: DiffEntryAdded, After: entryLabel(eb),
		})
	}
	return diffs
}

func entryLabel(e *ExceptionEntry) string {
	if e.Closed {
		return "closed"
	}
	if e.Day == nil {
		return ""
	}
	if !e.Day.Open {
		return "closed"
	}
	parts := make([]string, len(e.Day.Slots))
	for i, s := range e.Day.Slots {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}
