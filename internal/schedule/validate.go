package schedule

import (
	"fmt"
)

// MalformedScheduleError reports a structurally invalid schedule. Upstream
// validation should prevent these, but the codec checks defensively.
type MalformedScheduleError struct {
	Path   string
	Reason string
}

func (e *MalformedScheduleError) Error() string {
	return fmt.Sprintf("malformed schedule at %s: %s", e.Path, e.Reason)
}

func invalidf(path, format string, args ...any) *MalformedScheduleError {
	return &MalformedScheduleError{Path: path, Reason: fmt.Sprintf(format, args...)}
}

// Validate checks the structural invariants of the schedule: slot ordering
// constraints (start < end, no overlap within a day), occurrence ordinal
// bounds, the weekly-vs-exception body shape per period key, and the
// presence of the default period.
func (s *Schedule) Validate() error {
	if s == nil {
		return invalidf("schedule", "nil schedule")
	}
	if s.Metadata.ID == "" {
		return invalidf("metadata.id", "missing identifier")
	}
	if s.Period(PeriodDefault) == nil {
		return invalidf("periods", "default period missing")
	}
	seen := map[PeriodKey]bool{}
	for i := range s.Periods {
		p := &s.Periods[i]
		path := fmt.Sprintf("periods[%s]", p.Key)
		if _, ok := periodLabels[p.Key]; !ok {
			return invalidf(path, "unknown period key")
		}
		if seen[p.Key] {
			return invalidf(path, "duplicate period")
		}
		seen[p.Key] = true
		if err := validatePeriod(p, path); err != nil {
			return err
		}
	}
	return nil
}

func validatePeriod(p *Period, path string) error {
	if IsWeeklyPeriod(p.Key) {
		if len(p.Exceptions) > 0 || p.Mode != ModeNone {
			return invalidf(path, "weekly period carries exception data")
		}
		if p.Weekly == nil {
			return invalidf(path, "weekly body missing")
		}
		for d := Monday; d <= Sunday; d++ {
			day := p.Weekly.Day(d)
			dayPath := fmt.Sprintf("%s.%s", path, d)
			if err := validateDay(day, dayPath, false); err != nil {
				return err
			}
		}
		return nil
	}

	if p.Weekly != nil {
		return invalidf(path, "exception period carries a weekly body")
	}
	for i := range p.Exceptions {
		e := &p.Exceptions[i]
		entryPath := fmt.Sprintf("%s.exceptions[%s]", path, e.Key)
		if err := validateDayKey(e.Key, entryPath); err != nil {
			return err
		}
		if p.Key == PeriodSpecialDays && e.Key.Kind == DayKeyWeekday && len(e.Key.Occurrence) == 0 {
			return invalidf(entryPath, "weekday special day requires an occurrence qualifier")
		}
		// The grammar has no way to mark a lone date as a special day rather
		// than a holiday, so such entries belong to the public-holidays
		// period from the start.
		if p.Key == PeriodSpecialDays && e.Key.Kind == DayKeyDate {
			return invalidf(entryPath, "single dates belong to the public-holidays period")
		}
		if e.Closed == (e.Day != nil) {
			return invalidf(entryPath, "entry must carry either hours or the closed sentinel")
		}
		if e.Day != nil {
			if err := validateDay(e.Day, entryPath, true); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateDayKey(k DayKey, path string) error {
	switch k.Kind {
	case DayKeyWeekday:
		if k.Weekday < Monday || k.Weekday > Sunday {
			return invalidf(path, "weekday out of range")
		}
		if err := validateOccurrence(k.Occurrence, path); err != nil {
			return err
		}
	case DayKeyDate:
		if k.Date.IsZero() {
			return invalidf(path, "date missing")
		}
	case DayKeyDateRange:
		if k.Date.IsZero() || k.End.IsZero() {
			return invalidf(path, "date range bounds missing")
		}
		if k.End.Before(k.Date) {
			return invalidf(path, "date range end precedes start")
		}
	default:
		return invalidf(path, "unknown day token kind %q", k.Kind)
	}
	return nil
}

// validateDay checks one day's slots. Occurrence qualifiers are only legal
// inside exception bodies; a weekly rule restricted to specific instances
// of a weekday belongs to the special-days period instead.
func validateDay(day *DaySchedule, path string, allowOccurrence bool) error {
	if !day.Open && len(day.Slots) > 0 {
		return invalidf(path, "closed day carries time slots")
	}
	for i, slot := range day.Slots {
		slotPath := fmt.Sprintf("%s.slots[%d]", path, i)
		if !slot.Start.Before(slot.End) {
			return invalidf(slotPath, "start %s not before end %s", slot.Start, slot.End)
		}
		if len(slot.Occurrence) > 0 {
			if !allowOccurrence {
				return invalidf(slotPath, "occurrence qualifier outside an exception period")
			}
			if err := validateOccurrence(slot.Occurrence, slotPath); err != nil {
				return err
			}
		}
	}
	return validateNoOverlap(day.Slots, path)
}

func validateOccurrence(occ []int, path string) error {
	for _, n := range occ {
		if n < 1 || n > 5 {
			return invalidf(path, "occurrence ordinal %d out of range 1..5", n)
		}
	}
	return nil
}

// validateNoOverlap rejects overlapping slots within one day. Slots sharing
// disjoint occurrence sets never collide, so only slots with intersecting
// occurrences (or none) are checked against each other.
func validateNoOverlap(slots []TimeSlot, path string) error {
	for i := 0; i < len(slots); i++ {
		for j := i + 1; j < len(slots); j++ {
			if !occurrencesIntersect(slots[i].Occurrence, slots[j].Occurrence) {
				continue
			}
			if slots[i].Start.Before(slots[j].End) && slots[j].Start.Before(slots[i].End) {
				return invalidf(path, "slots %s and %s overlap", slots[i].Span(), slots[j].Span())
			}
		}
	}
	return nil
}

// occurrencesIntersect reports whether two occurrence sets can select the
// same day instance. An empty set means every instance.
func occurrencesIntersect(a, b []int) bool {
	if len(a) == 0 || len(b) == 0 {
		return true
	}
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}
