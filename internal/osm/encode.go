package osm

import (
	"fmt"
	"strings"

	"github.com/datagora/openhours/internal/schedule"
)

// Options controls encoding policy.
type Options struct {
	// ExplicitClosedDays emits `<range> off` rules for days the source
	// reported as closed, instead of leaving them implicit.
	ExplicitClosedDays bool
}

// EncodeResult carries the encoded text plus human-readable notes about
// information the grammar could not carry.
type EncodeResult struct {
	Text  string
	Notes string
}

// Encode serializes a schedule into the opening_hours grammar. Contiguous
// weekdays with element-wise identical hours are compressed into ranges.
// Rules are emitted default period first, then public holidays, vacations
// and special days, so that under the grammar's left-to-right precedence
// the dated and conditional rules override the default week.
//
// A structurally invalid schedule fails with *schedule.MalformedScheduleError;
// a valid one never fails. A permanently closed facility encodes as the
// bare "closed" literal regardless of its periods.
func Encode(s *schedule.Schedule, opts Options) (EncodeResult, error) {
	if err := s.Validate(); err != nil {
		return EncodeResult{}, err
	}
	norm := schedule.Normalize(s)

	if norm.Extraction.PermanentlyClosed {
		return EncodeResult{Text: "closed"}, nil
	}

	var rules []string
	var notes []string

	if p := norm.Period(schedule.PeriodDefault); p.Found {
		rules = append(rules, weeklyRules(p, "", opts)...)
	}

	if p := norm.Period(schedule.PeriodPublicHolidays); p.Found {
		rules = append(rules, exceptionRules(p, "PH")...)
	}

	if p := norm.Period(schedule.PeriodSummerVacation); p.Found {
		if r := weeklyRules(p, "SH", opts); len(r) > 0 {
			rules = append(rules, r...)
			notes = append(notes, "summer and other school vacations share the SH modifier")
		}
	}
	if p := norm.Period(schedule.PeriodSchoolVacation); p.Found {
		rules = append(rules, weeklyRules(p, "SH", opts)...)
	}

	if p := norm.Period(schedule.PeriodSpecialDays); p.Found {
		rules = append(rules, exceptionRules(p, "")...)
	}

	if len(rules) == 0 {
		notes = append(notes, "no opening hours information")
	}
	return EncodeResult{
		Text:  strings.Join(rules, "; "),
		Notes: strings.Join(notes, "; "),
	}, nil
}

// weeklyRules emits the rules of a weekly-bodied period. Days with
// identical slot lists are grouped, then each group's day set is compressed
// into contiguous ranges. Closed days are emitted only under the explicit
// policy, or when the whole week is closed and the closure would otherwise
// be lost.
func weeklyRules(p *schedule.Period, modifier string, opts Options) []string {
	type group struct {
		body string
		days []schedule.Weekday
	}
	var groups []group
	index := map[string]int{}
	var closedDays []schedule.Weekday

	for d := schedule.Monday; d <= schedule.Sunday; d++ {
		day := p.Weekly.Day(d)
		if !day.Found {
			continue
		}
		if !day.Open || len(day.Slots) == 0 {
			closedDays = append(closedDays, d)
			continue
		}
		body := slotBody(day.Slots)
		i, ok := index[body]
		if !ok {
			i = len(groups)
			index[body] = i
			groups = append(groups, group{body: body})
		}
		groups[i].days = append(groups[i].days, d)
	}

	var rules []string
	for _, g := range groups {
		rules = append(rules, selector(compressDays(g.days), modifier)+" "+g.body)
	}
	if len(closedDays) > 0 && (opts.ExplicitClosedDays || len(groups) == 0) {
		rules = append(rules, selector(compressDays(closedDays), modifier)+" off")
	}
	return rules
}

func selector(days, modifier string) string {
	if modifier == "" {
		return days
	}
	return days + " " + modifier
}

func slotBody(slots []schedule.TimeSlot) string {
	parts := make([]string, len(slots))
	for i, s := range slots {
		parts[i] = s.Span()
	}
	return strings.Join(parts, ",")
}

// exceptionRules emits the rules of an exception-bodied period. A
// period-wide default mode becomes a bare modifier rule ("PH off");
// weekday-keyed entries carry the modifier in their selector; explicit
// dates stand on their own without a condition suffix.
func exceptionRules(p *schedule.Period, modifier string) []string {
	var rules []string
	if modifier != "" && p.Mode != schedule.ModeNone {
		rules = append(rules, modifier+" "+p.Mode.Body())
	}
	for _, e := range p.Exceptions {
		rules = append(rules, entryRule(e, modifier))
	}
	return rules
}

func entryRule(e schedule.ExceptionEntry, modifier string) string {
	var sel string
	switch e.Key.Kind {
	case schedule.DayKeyWeekday:
		sel = e.Key.String() // includes the occurrence bracket
		if modifier != "" {
			sel += " " + modifier
		}
	case schedule.DayKeyDate:
		sel = osmDate(e.Key.Date)
	case schedule.DayKeyDateRange:
		sel = osmDate(e.Key.Date) + "-" + osmDate(e.Key.End)
	}

	if e.Closed || e.Day == nil || !e.Day.Open {
		return sel + " off"
	}
	if len(e.Day.Slots) == 0 {
		return sel + " open"
	}
	return sel + " " + slotBody(e.Day.Slots)
}

func osmDate(d schedule.Date) string {
	return fmt.Sprintf("%04d %s %02d", d.Year, monthAbbrev(d.Month), d.Day)
}

// compressDays collapses a sorted day set into contiguous range tokens:
// Mo,Tu,We,Th,Fr becomes "Mo-Fr", Mo,We,Fr stays "Mo,We,Fr".
func compressDays(days []schedule.Weekday) string {
	var parts []string
	for i := 0; i < len(days); {
		j := i
		for j+1 < len(days) && days[j+1] == days[j]+1 {
			j++
		}
		if i == j {
			parts = append(parts, days[i].Token())
		} else {
			parts = append(parts, days[i].Token()+"-"+days[j].Token())
		}
		i = j + 1
	}
	return strings.Join(parts, ",")
}
