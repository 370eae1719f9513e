package schedule

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func weekdaysOpen(s *Schedule, spans ...string) {
	p := s.Period(PeriodDefault)
	p.Found = true
	var slots []TimeSlot
	for _, span := range spans {
		start := MustClock(span[:5])
		end := MustClock(span[6:])
		slots = append(slots, TimeSlot{Start: start, End: end})
	}
	for d := Monday; d <= Friday; d++ {
		day := p.Weekly.Day(d)
		day.Found = true
		day.Open = true
		day.Slots = cloneSlots(slots)
	}
	p.Weekly.Day(Saturday).Found = true
	p.Weekly.Day(Sunday).Found = true
	s.Extraction.Found = true
}

func TestCompareReflexive(t *testing.T) {
	s := New(Metadata{ID: "x"})
	weekdaysOpen(s, "09:00-12:00", "14:00-17:00")

	res := Compare(s, s)
	assert.Equal(t, StatusIdentical, res.Status)
	assert.Empty(t, res.Differences)
}

func TestCompareIgnoresRepresentation(t *testing.T) {
	a := New(Metadata{ID: "x"})
	weekdaysOpen(a, "09:00-12:00", "14:00-17:00")

	// Same week with reversed slot order and an explicit empty PH period.
	b := New(Metadata{ID: "x"})
	weekdaysOpen(b, "14:00-17:00", "09:00-12:00")
	for d := Monday; d <= Friday; d++ {
		day := b.Period(PeriodDefault).Weekly.Day(d)
		day.Slots[0], day.Slots[1] = day.Slots[1], day.Slots[0]
	}
	b.EnsurePeriod(PeriodPublicHolidays)

	res := Compare(a, b)
	assert.Equal(t, StatusIdentical, res.Status)
}

func TestCompareSlotAdded(t *testing.T) {
	a := New(Metadata{ID: "x"})
	weekdaysOpen(a, "09:00-12:00")
	b := New(Metadata{ID: "x"})
	weekdaysOpen(b, "09:00-12:00")
	wed := b.Period(PeriodDefault).Weekly.Day(Wednesday)
	wed.Slots = append(wed.Slots, TimeSlot{Start: MustClock("14:00"), End: MustClock("17:00")})

	res := Compare(a, b)
	assert.Equal(t, StatusDifferent, res.Status)
	require.Len(t, res.Differences, 1)
	d := res.Differences[0]
	assert.Equal(t, PeriodDefault, d.Period)
	assert.Equal(t, "wednesday", d.Day)
	assert.Equal(t, DiffSlotAdded, d.Kind)
	assert.Equal(t, "14:00-17:00", d.After)
}

func TestCompareStatusChanged(t *testing.T) {
	a := New(Metadata{ID: "x"})
	weekdaysOpen(a, "09:00-12:00")
	b := New(Metadata{ID: "x"})
	weekdaysOpen(b, "09:00-12:00")
	*b.Period(PeriodDefault).Weekly.Day(Friday) = DaySchedule{Found: true}

	res := Compare(a, b)
	assert.Equal(t, StatusDifferent, res.Status)

	var kinds []DiffKind
	for _, d := range res.Differences {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, DiffStatusChanged)
	assert.Contains(t, kinds, DiffSlotRemoved)
}

func TestCompareOccurrenceChange(t *testing.T) {
	build := func(occ ...int) *Schedule {
		s := New(Metadata{ID: "x"})
		weekdaysOpen(s, "09:00-12:00")
		p := s.EnsurePeriod(PeriodSpecialDays)
		p.Found = true
		p.SetEntry(ExceptionEntry{
			Key: WeekdayKey(Tuesday, occ...),
			Day: &DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
				{Start: MustClock("09:00"), End: MustClock("12:00"), Occurrence: occ},
			}},
		})
		return s
	}

	res := Compare(build(1), build(1, 3))
	assert.Equal(t, StatusDifferent, res.Status)
	// Different occurrence sets change the day token identity, so the entry
	// reads as removed plus added rather than silently matching.
	var kinds []DiffKind
	for _, d := range res.Differences {
		kinds = append(kinds, d.Kind)
	}
	assert.Contains(t, kinds, DiffEntryRemoved)
	assert.Contains(t, kinds, DiffEntryAdded)
}

func TestCompareSlotOccurrenceChange(t *testing.T) {
	build := func(slotOcc []int) *Schedule {
		s := New(Metadata{ID: "x"})
		weekdaysOpen(s, "09:00-12:00")
		p := s.EnsurePeriod(PeriodSpecialDays)
		p.Found = true
		p.SetEntry(ExceptionEntry{
			Key: WeekdayKey(Tuesday, 1, 3),
			Day: &DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
				{Start: MustClock("09:00"), End: MustClock("12:00"), Occurrence: slotOcc},
			}},
		})
		return s
	}

	res := Compare(build([]int{1}), build([]int{1, 3}))
	assert.Equal(t, StatusDifferent, res.Status)
	require.Len(t, res.Differences, 1)
	d := res.Differences[0]
	assert.Equal(t, DiffSlotChanged, d.Kind)
	assert.Equal(t, "09:00-12:00[1]", d.Before)
	assert.Equal(t, "09:00-12:00[1,3]", d.After)
}

func TestComparePermanentClosure(t *testing.T) {
	open := New(Metadata{ID: "x"})
	weekdaysOpen(open, "09:00-12:00")

	closed := New(Metadata{ID: "x"})
	closed.Extraction.Found = true
	closed.Extraction.PermanentlyClosed = true
	// Stale hours must not mask the closure.
	weekdaysOpen(closed, "09:00-12:00")
	closed.Extraction.PermanentlyClosed = true

	res := Compare(open, closed)
	assert.Equal(t, StatusDifferent, res.Status)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, DiffClosureChanged, res.Differences[0].Kind)

	both := Compare(closed, closed)
	assert.Equal(t, StatusIdentical, both.Status)
}

func TestCompareMissingDataIsNotComparable(t *testing.T) {
	a := New(Metadata{ID: "x"})
	weekdaysOpen(a, "09:00-12:00")
	ph := a.EnsurePeriod(PeriodPublicHolidays)
	ph.Found = true
	ph.Mode = ModeClosed

	b := New(Metadata{ID: "x"})
	weekdaysOpen(b, "09:00-12:00")

	res := Compare(a, b)
	assert.Equal(t, StatusDifferent, res.Status, "default weeks still compared")
	require.Len(t, res.Differences, 1)
	assert.Equal(t, DiffMissingData, res.Differences[0].Kind)
	assert.Equal(t, PeriodPublicHolidays, res.Differences[0].Period)
}

func TestCompareNotComparableWhenNothingShared(t *testing.T) {
	// One side only knows the default week, the other only public holidays.
	a := New(Metadata{ID: "x"})
	weekdaysOpen(a, "09:00-12:00")

	b := New(Metadata{ID: "x"})
	b.Extraction.Found = true
	ph := b.EnsurePeriod(PeriodPublicHolidays)
	ph.Found = true
	ph.Mode = ModeClosed

	res := Compare(a, b)
	assert.Equal(t, StatusNotComparable, res.Status)
	for _, d := range res.Differences {
		assert.Equal(t, DiffMissingData, d.Kind)
	}
}

func TestCompareBothEmpty(t *testing.T) {
	res := Compare(New(Metadata{ID: "x"}), New(Metadata{ID: "x"}))
	assert.Equal(t, StatusIdentical, res.Status)
}

func TestCompareModeChanged(t *testing.T) {
	build := func(mode Mode) *Schedule {
		s := New(Metadata{ID: "x"})
		weekdaysOpen(s, "09:00-12:00")
		p := s.EnsurePeriod(PeriodPublicHolidays)
		p.Found = true
		p.Mode = mode
		return s
	}

	res := Compare(build(ModeClosed), build(ModeOpen))
	assert.Equal(t, StatusDifferent, res.Status)
	require.Len(t, res.Differences, 1)
	assert.Equal(t, DiffModeChanged, res.Differences[0].Kind)
	assert.Equal(t, "closed", res.Differences[0].Before)
	assert.Equal(t, "open", res.Differences[0].After)
}

func TestCompareExceptionEntries(t *testing.T) {
	build := func(closed bool) *Schedule {
		s := New(Metadata{ID: "x"})
		weekdaysOpen(s, "09:00-12:00")
		p := s.EnsurePeriod(PeriodPublicHolidays)
		p.Found = true
		e := ExceptionEntry{Key: DateKey(MustDate("2025-12-25"))}
		if closed {
			e.Closed = true
		} else {
			e.Day = &DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
				{Start: MustClock("09:00"), End: MustClock("12:00")},
			}}
		}
		p.SetEntry(e)
		return s
	}

	res := Compare(build(true), build(false))
	assert.Equal(t, StatusDifferent, res.Status)
	require.Len(t, res.Differences, 1)
	d := res.Differences[0]
	assert.Equal(t, DiffStatusChanged, d.Kind)
	assert.Equal(t, "2025-12-25", d.Day)
	assert.Equal(t, "closed", d.Before)
	assert.Equal(t, "09:00-12:00", d.After)
}
