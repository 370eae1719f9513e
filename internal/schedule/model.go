// Package schedule defines the canonical structured representation of an
// opening-hours specification and the operations that compare two of them.
//
// A Schedule is pure data: metadata, an ordered set of named periods (the
// default week, school vacations, public holidays, special days) and
// extraction flags. All operations in this package are pure transformations
// producing new values; nothing here performs I/O or logs.
package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTimezone is applied when upstream metadata carries no timezone.
const DefaultTimezone = "Europe/Paris"

// Weekday is a day of the week, Monday-first to match the opening-hours
// grammar's canonical day order.
type Weekday int

// Weekdays in canonical order.
const (
	Monday Weekday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

var weekdayNames = [7]string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

var weekdayTokens = [7]string{"Mo", "Tu", "We", "Th", "Fr", "Sa", "Su"}

func (d Weekday) String() string {
	if d < Monday || d > Sunday {
		return fmt.Sprintf("Weekday(%d)", int(d))
	}
	return weekdayNames[d]
}

// Token returns the two-letter day token used by the opening-hours grammar.
func (d Weekday) Token() string {
	return weekdayTokens[d]
}

// ParseWeekdayToken resolves a two-letter grammar token ("Mo".."Su").
func ParseWeekdayToken(tok string) (Weekday, bool) {
	for i, t := range weekdayTokens {
		if t == tok {
			return Weekday(i), true
		}
	}
	return 0, false
}

// ParseWeekday resolves a lowercase English day name.
func ParseWeekday(name string) (Weekday, bool) {
	for i, n := range weekdayNames {
		if n == strings.ToLower(name) {
			return Weekday(i), true
		}
	}
	return 0, false
}

// Clock is a wall-clock time of day with minute precision.
type Clock struct {
	Hour   int
	Minute int
}

// ParseClock parses "HH:MM" (a single-digit hour is tolerated on input).
func ParseClock(s string) (Clock, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 || len(parts[1]) != 2 {
		return Clock{}, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return Clock{}, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return Clock{}, fmt.Errorf("time %q out of range", s)
	}
	return Clock{Hour: hour, Minute: minute}, nil
}

// MustClock parses a clock value or panics. For tests and constants.
func MustClock(s string) Clock {
	c, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return c
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (c Clock) Minutes() int {
	return c.Hour*60 + c.Minute
}

// Before reports whether c is earlier than o.
func (c Clock) Before(o Clock) bool {
	return c.Minutes() < o.Minutes()
}

// MarshalJSON encodes the clock as its "HH:MM" string form.
func (c Clock) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (c *Clock) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Date is a calendar date without a time component.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses an ISO "YYYY-MM-DD" date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}, nil
}

// MustDate parses a date or panics. For tests and constants.
func MustDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// MarshalJSON encodes the date as its ISO string form. The zero date
// marshals as null so that unset key fields survive a round trip.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO "YYYY-MM-DD" string. Null and the empty
// string decode to the zero date.
func (d *Date) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// TimeSlot is a single opening interval within a day. The optional
// Occurrence restricts a weekday rule to specific instances within the
// month (e.g. {1, 3} for the 1st and 3rd such weekday); nil means every
// instance. Occurrences are only valid inside exception-bodied periods.
type TimeSlot struct {
	Start      Clock `json:"start"`
	End        Clock `json:"end"`
	Occurrence []int `json:"occurrence,omitempty"`
}

// Span returns the "HH:MM-HH:MM" form of the slot, without occurrence.
func (t TimeSlot) Span() string {
	return t.Start.String() + "-" + t.End.String()
}

func (t TimeSlot) String() string {
	if len(t.Occurrence) == 0 {
		return t.Span()
	}
	return t.Span() + "[" + formatOccurrence(t.Occurrence) + "]"
}

func formatOccurrence(occ []int) string {
	parts := make([]string, len(occ))
	for i, n := range occ {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// DaySchedule is one day's worth of information. Found records whether the
// upstream source supplied anything for this day at all; a day can be
// found and closed, which is different from unknown.
type DaySchedule struct {
	Found bool       `json:"found"`
	Open  bool       `json:"open"`
	Slots []TimeSlot `json:"slots,omitempty"`
}

// HasHours reports whether the day carries at least one opening interval.
func (d DaySchedule) HasHours() bool {
	return d.Found && d.Open && len(d.Slots) > 0
}

// WeeklySchedule maps every weekday to exactly one DaySchedule. The array
// representation makes the all-seven-days invariant structural.
type WeeklySchedule [7]DaySchedule

// Day returns the schedule for the given weekday.
func (w *WeeklySchedule) Day(d Weekday) *DaySchedule {
	return &w[d]
}

// MarshalJSON encodes the week as an object keyed by lowercase day names,
// all seven keys always present.
func (w WeeklySchedule) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, day := range w {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(weekdayNames[i]))
		b.WriteByte(':')
		enc, err := json.Marshal(day)
		if err != nil {
			return nil, err
		}
		b.Write(enc)
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes a day-name-keyed object. Missing days decode as
// not-found rather than failing, so partially filled upstream output is
// accepted and completed.
func (w *WeeklySchedule) UnmarshalJSON(data []byte) error {
	raw := map[string]DaySchedule{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var week WeeklySchedule
	for name, day := range raw {
		wd, ok := ParseWeekday(name)
		if !ok {
			return fmt.Errorf("unknown weekday %q", name)
		}
		week[wd] = day
	}
	*w = week
	return nil
}

// DayKeyKind discriminates the day-token union used by exception bodies.
type DayKeyKind string

// Day-token kinds.
const (
	DayKeyWeekday   DayKeyKind = "weekday"
	DayKeyDate      DayKeyKind = "date"
	DayKeyDateRange DayKeyKind = "date_range"
)

// DayKey identifies one entry of an exception body: a weekday with an
// optional occurrence qualifier, an explicit calendar date, or a date range.
type DayKey struct {
	Kind       DayKeyKind `json:"kind"`
	Weekday    Weekday    `json:"weekday,omitempty"`
	Occurrence []int      `json:"occurrence,omitempty"`
	Date       Date       `json:"date,omitzero"`
	End        Date       `json:"end,omitzero"`
}

// WeekdayKey builds a weekday day-token with an optional occurrence set.
func WeekdayKey(d Weekday, occurrence ...int) DayKey {
	return DayKey{Kind: DayKeyWeekday, Weekday: d, Occurrence: occurrence}
}

// DateKey builds a single-date day-token.
func DateKey(d Date) DayKey {
	return DayKey{Kind: DayKeyDate, Date: d}
}

// DateRangeKey builds a date-range day-token (inclusive bounds).
func DateRangeKey(start, end Date) DayKey {
	return DayKey{Kind: DayKeyDateRange, Date: start, End: end}
}

// String returns the canonical form of the key, used for map identity in
// the comparator and as the day-or-date label in diffs.
func (k DayKey) String() string {
	switch k.Kind {
	case DayKeyWeekday:
		if len(k.Occurrence) > 0 {
			return k.Weekday.Token() + "[" + formatOccurrence(k.Occurrence) + "]"
		}
		return k.Weekday.Token()
	case DayKeyDate:
		return k.Date.String()
	case DayKeyDateRange:
		return k.Date.String() + ".." + k.End.String()
	}
	return string(k.Kind)
}

// ExceptionEntry binds a day token to either an explicit DaySchedule or the
// closed sentinel.
type ExceptionEntry struct {
	Key    DayKey       `json:"key"`
	Closed bool         `json:"closed,omitempty"`
	Day    *DaySchedule `json:"day,omitempty"`
}

// Condition tags a period with the grammar modifier it maps to.
type Condition string

// Condition tags.
const (
	ConditionNone          Condition = ""
	ConditionPublicHoliday Condition = "PH"
	ConditionSchoolHoliday Condition = "SH"
)

// Mode is the default behaviour of an exception period when no specific
// entries are listed ("PH off" style rules).
type Mode string

// Period-wide modes.
const (
	ModeNone   Mode = ""
	ModeClosed Mode = "closed"
	ModeOpen   Mode = "open"
)

// Body returns the grammar body word the mode maps to.
func (m Mode) Body() string {
	if m == ModeClosed {
		return "off"
	}
	return string(m)
}

// PeriodKey names one of the closed set of periods a Schedule may carry.
type PeriodKey string

// The period set. Default is always present; the others are optional.
const (
	PeriodDefault        PeriodKey = "default"
	PeriodSummerVacation PeriodKey = "summer_vacation"
	PeriodSchoolVacation PeriodKey = "school_vacation"
	PeriodPublicHolidays PeriodKey = "public_holidays"
	PeriodSpecialDays    PeriodKey = "special_days"
)

// PeriodKeys lists every period key in canonical order.
var PeriodKeys = []PeriodKey{
	PeriodDefault,
	PeriodSummerVacation,
	PeriodSchoolVacation,
	PeriodPublicHolidays,
	PeriodSpecialDays,
}

var periodLabels = map[PeriodKey]string{
	PeriodDefault:        "Outside school holidays",
	PeriodSummerVacation: "Summer school holidays",
	PeriodSchoolVacation: "Other school holidays",
	PeriodPublicHolidays: "Public holidays",
	PeriodSpecialDays:    "Special days",
}

var periodConditions = map[PeriodKey]Condition{
	PeriodDefault:        ConditionNone,
	PeriodSummerVacation: ConditionSchoolHoliday,
	PeriodSchoolVacation: ConditionSchoolHoliday,
	PeriodPublicHolidays: ConditionPublicHoliday,
	PeriodSpecialDays:    ConditionNone,
}

// IsWeeklyPeriod reports whether the period key carries a weekly body.
// The other keys carry exception bodies.
func IsWeeklyPeriod(key PeriodKey) bool {
	switch key {
	case PeriodDefault, PeriodSummerVacation, PeriodSchoolVacation:
		return true
	}
	return false
}

// DefaultLabel returns the canonical human label for a period key.
func DefaultLabel(key PeriodKey) string {
	return periodLabels[key]
}

// DefaultCondition returns the grammar condition a period key maps to.
func DefaultCondition(key PeriodKey) Condition {
	return periodConditions[key]
}

// Period is a named rule-set. Exactly one of Weekly or Exceptions is
// populated depending on the period key; Validate enforces the shape.
type Period struct {
	Key        PeriodKey        `json:"key"`
	Found      bool             `json:"found"`
	Label      string           `json:"label,omitempty"`
	Condition  Condition        `json:"condition,omitempty"`
	Mode       Mode             `json:"mode,omitempty"`
	Weekly     *WeeklySchedule  `json:"weekly,omitempty"`
	Exceptions []ExceptionEntry `json:"exceptions,omitempty"`
}

// HasContent reports whether the period carries any actual information
// beyond its found flag.
func (p *Period) HasContent() bool {
	if p == nil {
		return false
	}
	if p.Weekly != nil {
		for _, day := range p.Weekly {
			if day.Found && (day.Open || len(day.Slots) > 0) {
				return true
			}
		}
	}
	return len(p.Exceptions) > 0 || p.Mode != ModeNone
}

// Entry returns the exception entry matching the key, or nil.
func (p *Period) Entry(key DayKey) *ExceptionEntry {
	id := key.String()
	for i := range p.Exceptions {
		if p.Exceptions[i].Key.String() == id {
			return &p.Exceptions[i]
		}
	}
	return nil
}

// SetEntry inserts or replaces the exception entry with the same day token.
// Replacement implements the grammar's last-rule-wins precedence.
func (p *Period) SetEntry(entry ExceptionEntry) {
	if existing := p.Entry(entry.Key); existing != nil {
		*existing = entry
		return
	}
	p.Exceptions = append(p.Exceptions, entry)
}

// Metadata identifies the facility a schedule belongs to.
type Metadata struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	FacilityType string `json:"facility_type,omitempty"`
	URL          string `json:"url,omitempty"`
	Timezone     string `json:"timezone,omitempty"`
}

// ExtractionInfo carries the upstream extraction flags.
type ExtractionInfo struct {
	Found             bool   `json:"found"`
	PermanentlyClosed bool   `json:"permanently_closed,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

// Schedule is the root entity: metadata, the ordered period collection and
// the extraction flags. The default period is always present.
type Schedule struct {
	Metadata   Metadata       `json:"metadata"`
	Periods    []Period       `json:"periods"`
	Extraction ExtractionInfo `json:"extraction"`
}

// New builds an empty schedule for the given facility with the default
// period present and the default timezone applied.
func New(meta Metadata) *Schedule {
	if meta.Timezone == "" {
		meta.Timezone = DefaultTimezone
	}
	return &Schedule{
		Metadata: meta,
		Periods: []Period{{
			Key:       PeriodDefault,
			Label:     DefaultLabel(PeriodDefault),
			Condition: DefaultCondition(PeriodDefault),
			Weekly:    &WeeklySchedule{},
		}},
	}
}

// Period returns the period with the given key, or nil when absent.
func (s *Schedule) Period(key PeriodKey) *Period {
	for i := range s.Periods {
		if s.Periods[i].Key == key {
			return &s.Periods[i]
		}
	}
	return nil
}

// EnsurePeriod returns the period with the given key, materializing it with
// canonical label, condition and an empty body of the right shape when absent.
func (s *Schedule) EnsurePeriod(key PeriodKey) *Period {
	if p := s.Period(key); p != nil {
		return p
	}
	p := Period{
		Key:       key,
		Label:     DefaultLabel(key),
		Condition: DefaultCondition(key),
	}
	if IsWeeklyPeriod(key) {
		p.Weekly = &WeeklySchedule{}
	}
	s.Periods = append(s.Periods, p)
	return &s.Periods[len(s.Periods)-1]
}

// Clone returns a deep copy of the schedule.
func (s *Schedule) Clone() *Schedule {
	if s == nil {
		return nil
	}
	out := &Schedule{
		Metadata:   s.Metadata,
		Extraction: s.Extraction,
		Periods:    make([]Period, len(s.Periods)),
	}
	for i, p := range s.Periods {
		out.Periods[i] = clonePeriod(p)
	}
	return out
}

func clonePeriod(p Period) Period {
	out := p
	if p.Weekly != nil {
		week := *p.Weekly
		for i := range week {
			week[i].Slots = cloneSlots(week[i].Slots)
		}
		out.Weekly = &week
	}
	if p.Exceptions != nil {
		out.Exceptions = make([]ExceptionEntry, len(p.Exceptions))
		for i, e := range p.Exceptions {
			ce := e
			ce.Key.Occurrence = cloneInts(e.Key.Occurrence)
			if e.Day != nil {
				day := *e.Day
				day.Slots = cloneSlots(e.Day.Slots)
				ce.Day = &day
			}
			out.Exceptions[i] = ce
		}
	}
	return out
}

func cloneSlots(slots []TimeSlot) []TimeSlot {
	if slots == nil {
		return nil
	}
	out := make([]TimeSlot, len(slots))
	for i, s := range slots {
		out[i] = s
		out[i].Occurrence = cloneInts(s.Occurrence)
	}
	return out
}

func cloneInts(v []int) []int {
	if v == nil {
		return nil
	}
	out := make([]int, len(v))
	copy(out, v)
	return out
}

func canonicalOccurrence(occ []int) []int {
	if len(occ) == 0 {
		return nil
	}
	out := cloneInts(occ)
	sort.Ints(out)
	dedup := out[:0]
	for i, n := range out {
		if i == 0 || n != out[i-1] {
			dedup = append(dedup, n)
		}
	}
	return dedup
}
