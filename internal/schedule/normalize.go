package schedule

import (
	"sort"
)

// Normalize returns a canonical deep copy of the schedule suitable for
// structural comparison:
//
//   - every period key is materialized, so an absent optional period and a
//     present period with found=false compare as equivalent;
//   - periods are reordered canonically (default, vacations, holidays,
//     special days);
//   - slots within a day are sorted by start, then end, then occurrence;
//   - occurrence sets are sorted and deduplicated, and a single ordinal is
//     indistinguishable from its one-element set;
//   - exception entries are sorted by day token (weekdays first, then
//     dates, then ranges).
//
// Adjacent or overlapping slots are preserved as authored; normalization
// never merges or splits intervals.
func Normalize(s *Schedule) *Schedule {
	out := s.Clone()
	if out.Metadata.Timezone == "" {
		out.Metadata.Timezone = DefaultTimezone
	}

	for _, key := range PeriodKeys {
		out.EnsurePeriod(key)
	}

	for i := range out.Periods {
		normalizePeriod(&out.Periods[i])
	}

	order := map[PeriodKey]int{}
	for i, key := range PeriodKeys {
		order[key] = i
	}
	sort.SliceStable(out.Periods, func(i, j int) bool {
		return order[out.Periods[i].Key] < order[out.Periods[j].Key]
	})
	return out
}

func normalizePeriod(p *Period) {
	if p.Label == "" {
		p.Label = DefaultLabel(p.Key)
	}
	if p.Condition == ConditionNone {
		p.Condition = DefaultCondition(p.Key)
	}
	if p.Weekly != nil {
		for i := range p.Weekly {
			normalizeDay(&p.Weekly[i])
		}
	}
	for i := range p.Exceptions {
		e := &p.Exceptions[i]
		e.Key.Occurrence = canonicalOccurrence(e.Key.Occurrence)
		if e.Day != nil {
			normalizeDay(e.Day)
		}
	}
	sort.SliceStable(p.Exceptions, func(i, j int) bool {
		return lessDayKey(p.Exceptions[i].Key, p.Exceptions[j].Key)
	})
}

func normalizeDay(day *DaySchedule) {
	for i := range day.Slots {
		day.Slots[i].Occurrence = canonicalOccurrence(day.Slots[i].Occurrence)
	}
	sort.SliceStable(day.Slots, func(i, j int) bool {
		a, b := day.Slots[i], day.Slots[j]
		if a.Start != b.Start {
			return a.Start.Before(b.Start)
		}
		if a.End != b.End {
			return a.End.Before(b.End)
		}
		return lessOccurrence(a.Occurrence, b.Occurrence)
	})
}

var dayKeyKindOrder = map[DayKeyKind]int{
	DayKeyWeekday:   0,
	DayKeyDate:      1,
	DayKeyDateRange: 2,
}

func lessDayKey(a, b DayKey) bool {
	if a.Kind != b.Kind {
		return dayKeyKindOrder[a.Kind] < dayKeyKindOrder[b.Kind]
	}
	switch a.Kind {
	case DayKeyWeekday:
		if a.Weekday != b.Weekday {
			return a.Weekday < b.Weekday
		}
		return lessOccurrence(a.Occurrence, b.Occurrence)
	case DayKeyDateRange:
		if a.Date != b.Date {
			return a.Date.Before(b.Date)
		}
		return a.End.Before(b.End)
	default:
		return a.Date.Before(b.Date)
	}
}

func lessOccurrence(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
