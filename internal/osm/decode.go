package osm

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/datagora/openhours/internal/schedule"
)

// DecodeResult carries the decoded schedule plus non-fatal warnings, such
// as a later rule overriding hours an earlier rule already set.
type DecodeResult struct {
	Schedule *schedule.Schedule
	Warnings []string
}

// Decode parses an opening_hours string into a structured schedule, using
// the supplied metadata as carry-through identification. Rules are applied
// left to right with last-rule-wins precedence. Input outside the supported
// grammar subset fails with a *MalformedOsmError; the decoder never guesses.
func Decode(text string, meta schedule.Metadata) (DecodeResult, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return DecodeResult{}, malformedf(text, 0, "empty opening_hours string")
	}

	sched := schedule.New(meta)

	// A lone closed/off sentinel with no selector denotes permanent closure.
	if isClosedWord(trimmed) {
		sched.Extraction.Found = true
		sched.Extraction.PermanentlyClosed = true
		week := sched.Period(schedule.PeriodDefault)
		week.Found = true
		for d := schedule.Monday; d <= schedule.Sunday; d++ {
			*week.Weekly.Day(d) = schedule.DaySchedule{Found: true}
		}
		return DecodeResult{Schedule: sched}, nil
	}

	var warnings []string
	for _, part := range splitRules(text) {
		if strings.TrimSpace(part.text) == "" {
			continue
		}
		rule, err := parseRule(part.text, part.off)
		if err != nil {
			return DecodeResult{}, err
		}
		warnings = applyRule(sched, rule, warnings)
	}

	sched.Extraction.Found = true
	return DecodeResult{Schedule: sched, Warnings: warnings}, nil
}

// rulePart is one top-level rule with its offset in the full input. The
// supported subset never nests ';' inside a rule, so a plain split is exact.
type rulePart struct {
	text string
	off  int
}

func splitRules(text string) []rulePart {
	var parts []rulePart
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == ';' {
			parts = append(parts, rulePart{text: text[start:i], off: start})
			start = i + 1
		}
	}
	return parts
}

// parsedRule is the outcome of parsing one rule: a selector (days, date or
// bare modifier) plus a time body.
type parsedRule struct {
	text string
	off  int

	days         []schedule.Weekday
	occurrence   []int
	modifier     string
	bareModifier bool

	isDate  bool
	isRange bool
	date    schedule.Date
	end     schedule.Date

	closed bool
	open   bool
	slots  []schedule.TimeSlot
}

type parser struct {
	rule string
	toks []token
	pos  int
}

func (p *parser) cur() token  { return p.toks[p.pos] }
func (p *parser) next() token { t := p.toks[p.pos]; p.pos++; return t }

func (p *parser) fail(t token, format string, args ...any) *MalformedOsmError {
	return malformedf(strings.TrimSpace(p.rule), t.off, format, args...)
}

func parseRule(text string, off int) (*parsedRule, error) {
	toks, lexErr := lex(text, off)
	if lexErr != nil {
		lexErr.Fragment = strings.TrimSpace(text)
		return nil, lexErr
	}
	p := &parser{rule: text, toks: toks}
	rule := &parsedRule{text: strings.TrimSpace(text), off: off}

	switch t := p.cur(); {
	case t.kind == tokenNumber && len(t.text) == 4:
		if err := p.parseDateSelector(rule); err != nil {
			return nil, err
		}
	case t.kind == tokenWord && isModifierWord(t.text):
		rule.bareModifier = true
		rule.modifier = p.next().text
	case t.kind == tokenWord:
		if err := p.parseDaySelector(rule); err != nil {
			return nil, err
		}
	default:
		return nil, p.fail(t, "expected a day, date or modifier selector, got %s", t.kind)
	}

	if err := p.parseBody(rule); err != nil {
		return nil, err
	}
	if t := p.cur(); t.kind != tokenEOF {
		return nil, p.fail(t, "trailing input after rule body")
	}
	return rule, nil
}

func (p *parser) parseDateSelector(rule *parsedRule) error {
	date, err := p.parseDate()
	if err != nil {
		return err
	}
	rule.isDate = true
	rule.date = date

	if p.cur().kind == tokenDash {
		p.next()
		end, err := p.parseDate()
		if err != nil {
			return err
		}
		if end.Before(date) {
			return p.fail(p.cur(), "date range end %s precedes start %s", end, date)
		}
		rule.isRange = true
		rule.end = end
	}
	return nil
}

func (p *parser) parseDate() (schedule.Date, error) {
	yearTok := p.next()
	if yearTok.kind != tokenNumber || len(yearTok.text) != 4 {
		return schedule.Date{}, p.fail(yearTok, "expected a four-digit year")
	}
	year, _ := strconv.Atoi(yearTok.text)

	monthTok := p.next()
	month, ok := monthAbbrevs[monthTok.text]
	if monthTok.kind != tokenWord || !ok {
		return schedule.Date{}, p.fail(monthTok, "unknown month %q", monthTok.text)
	}

	dayTok := p.next()
	if dayTok.kind != tokenNumber {
		return schedule.Date{}, p.fail(dayTok, "expected a day of month")
	}
	day, _ := strconv.Atoi(dayTok.text)
	if !validCalendarDay(year, month, day) {
		return schedule.Date{}, p.fail(dayTok, "invalid calendar date %d %s %d", year, monthTok.text, day)
	}
	return schedule.Date{Year: year, Month: month, Day: day}, nil
}

func validCalendarDay(year int, month time.Month, day int) bool {
	if day < 1 {
		return false
	}
	t := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	return t.Day() == day && t.Month() == month
}

func (p *parser) parseDaySelector(rule *parsedRule) error {
	for {
		day, err := p.parseDay()
		if err != nil {
			return err
		}
		if p.cur().kind == tokenDash {
			p.next()
			end, err := p.parseDay()
			if err != nil {
				return err
			}
			rule.days = append(rule.days, expandDayRange(day, end)...)
		} else {
			rule.days = append(rule.days, day)
		}

		// A comma continues the day list only when a day token follows;
		// otherwise it belongs to the time body.
		if p.cur().kind == tokenComma && p.toks[p.pos+1].kind == tokenWord {
			p.next()
			continue
		}
		break
	}

	if p.cur().kind == tokenLBracket {
		occ, err := p.parseOccurrence()
		if err != nil {
			return err
		}
		rule.occurrence = occ
	}

	if t := p.cur(); t.kind == tokenWord && isModifierWord(t.text) {
		rule.modifier = p.next().text
	}
	return nil
}

func (p *parser) parseDay() (schedule.Weekday, error) {
	t := p.next()
	if t.kind != tokenWord {
		return 0, p.fail(t, "expected a day token, got %s", t.kind)
	}
	day, ok := schedule.ParseWeekdayToken(t.text)
	if !ok {
		return 0, p.fail(t, "unknown day token %q", t.text)
	}
	return day, nil
}

// expandDayRange expands an inclusive day range, wrapping across the week
// boundary when the end precedes the start (e.g. Sa-Mo).
func expandDayRange(start, end schedule.Weekday) []schedule.Weekday {
	var days []schedule.Weekday
	d := start
	for {
		days = append(days, d)
		if d == end {
			return days
		}
		d = (d + 1) % 7
	}
}

func (p *parser) parseOccurrence() ([]int, error) {
	p.next() // consume '['
	var occ []int
	for {
		t := p.next()
		if t.kind != tokenNumber {
			return nil, p.fail(t, "expected an occurrence ordinal")
		}
		n, _ := strconv.Atoi(t.text)
		if n < 1 || n > 5 {
			return nil, p.fail(t, "occurrence ordinal %d out of range 1..5", n)
		}
		occ = append(occ, n)
		switch next := p.next(); next.kind {
		case tokenComma:
			continue
		case tokenRBracket:
			return occ, nil
		default:
			return nil, p.fail(next, "expected ',' or ']' in occurrence list")
		}
	}
}

func (p *parser) parseBody(rule *parsedRule) error {
	t := p.cur()
	if rule.bareModifier && t.kind != tokenWord {
		return p.fail(t, "%s-wide rule requires an off or open body, not hours", rule.modifier)
	}
	if t.kind == tokenWord {
		switch {
		case isClosedWord(t.text):
			p.next()
			rule.closed = true
			return nil
		case strings.EqualFold(t.text, "open"):
			// An open body without hours carries information only where the
			// entry is an exception: a modifier, an occurrence bracket or an
			// explicit date. A plain weekday would decode to nothing.
			if !rule.bareModifier && !rule.isDate && rule.modifier == "" && len(rule.occurrence) == 0 {
				return p.fail(t, "bare 'open' body requires a modifier, occurrence or date selector")
			}
			p.next()
			rule.open = true
			return nil
		default:
			return p.fail(t, "unrecognized body token %q", t.text)
		}
	}

	for {
		start, err := p.parseClock()
		if err != nil {
			return err
		}
		dash := p.next()
		if dash.kind != tokenDash {
			return p.fail(dash, "expected '-' between start and end time")
		}
		end, err := p.parseClock()
		if err != nil {
			return err
		}
		if !start.Before(end) {
			return p.fail(dash, "time range %s-%s is empty or inverted", start, end)
		}
		rule.slots = append(rule.slots, schedule.TimeSlot{Start: start, End: end})

		if p.cur().kind == tokenComma {
			p.next()
			continue
		}
		return nil
	}
}

func (p *parser) parseClock() (schedule.Clock, error) {
	hourTok := p.next()
	if hourTok.kind != tokenNumber {
		return schedule.Clock{}, p.fail(hourTok, "expected a time, got %s", hourTok.kind)
	}
	colon := p.next()
	if colon.kind != tokenColon {
		return schedule.Clock{}, p.fail(colon, "expected ':' in time")
	}
	minTok := p.next()
	if minTok.kind != tokenNumber || len(minTok.text) != 2 {
		return schedule.Clock{}, p.fail(minTok, "expected two-digit minutes")
	}
	clock, err := schedule.ParseClock(hourTok.text + ":" + minTok.text)
	if err != nil {
		return schedule.Clock{}, p.fail(hourTok, "%v", err)
	}
	return clock, nil
}

// applyRule routes one parsed rule into its period bucket. Later rules for
// an already-populated day replace earlier ones, mirroring the grammar's
// left-to-right rule precedence.
func applyRule(sched *schedule.Schedule, rule *parsedRule, warnings []string) []string {
	switch {
	case rule.bareModifier && rule.modifier == "PH":
		p := sched.EnsurePeriod(schedule.PeriodPublicHolidays)
		p.Found = true
		if rule.closed {
			p.Mode = schedule.ModeClosed
		} else {
			p.Mode = schedule.ModeOpen
		}

	case rule.bareModifier: // SH
		// "SH off" closes the whole school-vacation week. The grammar
		// cannot say "SH open" with hours without day selectors, and the
		// parser already rejected a time body here.
		p := sched.EnsurePeriod(schedule.PeriodSchoolVacation)
		p.Found = true
		for d := schedule.Monday; d <= schedule.Sunday; d++ {
			*p.Weekly.Day(d) = schedule.DaySchedule{Found: true, Open: rule.open}
		}

	case rule.isRange:
		// Date ranges describe vacation-style closures and irregular spans;
		// they live with the special days.
		p := sched.EnsurePeriod(schedule.PeriodSpecialDays)
		p.Found = true
		p.SetEntry(exceptionEntry(schedule.DateRangeKey(rule.date, rule.end), rule))

	case rule.isDate:
		// Single explicit dates are holiday exceptions.
		p := sched.EnsurePeriod(schedule.PeriodPublicHolidays)
		p.Found = true
		p.SetEntry(exceptionEntry(schedule.DateKey(rule.date), rule))

	case rule.modifier == "PH":
		p := sched.EnsurePeriod(schedule.PeriodPublicHolidays)
		p.Found = true
		for _, day := range rule.days {
			p.SetEntry(exceptionEntry(schedule.WeekdayKey(day, rule.occurrence...), rule))
		}

	case len(rule.occurrence) > 0:
		p := sched.EnsurePeriod(schedule.PeriodSpecialDays)
		p.Found = true
		for _, day := range rule.days {
			p.SetEntry(exceptionEntry(schedule.WeekdayKey(day, rule.occurrence...), rule))
		}

	default:
		key := schedule.PeriodDefault
		if rule.modifier == "SH" {
			key = schedule.PeriodSchoolVacation
		}
		p := sched.EnsurePeriod(key)
		p.Found = true
		for _, day := range rule.days {
			slot := p.Weekly.Day(day)
			if slot.Found {
				warnings = append(warnings, fmt.Sprintf(
					"rule %q overrides earlier hours for %s", rule.text, day))
			}
			if rule.closed {
				*slot = schedule.DaySchedule{Found: true}
			} else {
				*slot = schedule.DaySchedule{Found: true, Open: true, Slots: copySlots(rule.slots)}
			}
		}
	}
	return warnings
}

func exceptionEntry(key schedule.DayKey, rule *parsedRule) schedule.ExceptionEntry {
	if rule.closed {
		return schedule.ExceptionEntry{Key: key, Closed: true}
	}
	return schedule.ExceptionEntry{
		Key: key,
		Day: &schedule.DaySchedule{Found: true, Open: true, Slots: copySlots(rule.slots)},
	}
}

func copySlots(slots []schedule.TimeSlot) []schedule.TimeSlot {
	if slots == nil {
		return nil
	}
	out := make([]schedule.TimeSlot, len(slots))
	copy(out, slots)
	return out
}
