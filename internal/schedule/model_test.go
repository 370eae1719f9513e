package schedule

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		input   string
		want    Clock
		wantErr bool
	}{
		{input: "08:30", want: Clock{8, 30}},
		{input: "8:30", want: Clock{8, 30}},
		{input: "00:00", want: Clock{0, 0}},
		{input: "23:59", want: Clock{23, 59}},
		{input: "24:00", wantErr: true},
		{input: "12:60", wantErr: true},
		{input: "12:5", wantErr: true},
		{input: "noon", wantErr: true},
		{input: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestClockFormatting(t *testing.T) {
	assert.Equal(t, "08:05", Clock{8, 5}.String())
	assert.True(t, Clock{8, 30}.Before(Clock{9, 0}))
	assert.False(t, Clock{9, 0}.Before(Clock{9, 0}))
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-25")
	require.NoError(t, err)
	assert.Equal(t, "2025-12-25", d.String())

	_, err = ParseDate("2025-13-01")
	assert.Error(t, err)
	_, err = ParseDate("25 Dec 2025")
	assert.Error(t, err)
}

func TestWeekdayTokens(t *testing.T) {
	day, ok := ParseWeekdayToken("Tu")
	require.True(t, ok)
	assert.Equal(t, Tuesday, day)
	assert.Equal(t, "Tu", Tuesday.Token())

	_, ok = ParseWeekdayToken("Xx")
	assert.False(t, ok)
}

func TestWeeklyScheduleJSONRoundTrip(t *testing.T) {
	var week WeeklySchedule
	*week.Day(Monday) = DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
		{Start: MustClock("09:00"), End: MustClock("12:00")},
	}}
	*week.Day(Saturday) = DaySchedule{Found: true}

	data, err := json.Marshal(week)
	require.NoError(t, err)
	// All seven day keys are always present in the encoded form.
	for _, name := range []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		assert.Contains(t, string(data), name)
	}

	var decoded WeeklySchedule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, week, decoded)
}

func TestWeeklyScheduleJSONPartialInput(t *testing.T) {
	// Upstream extraction may omit days entirely; they decode as not-found.
	var week WeeklySchedule
	err := json.Unmarshal([]byte(`{"monday": {"found": true, "open": true, "slots": [{"start": "09:00", "end": "17:00"}]}}`), &week)
	require.NoError(t, err)
	assert.True(t, week.Day(Monday).Found)
	assert.False(t, week.Day(Tuesday).Found)
}

func TestScheduleJSONRoundTrip(t *testing.T) {
	s := New(Metadata{ID: "S1433", Name: "Mairie de Lyon 1", FacilityType: "mairie"})
	week := s.Period(PeriodDefault)
	week.Found = true
	*week.Weekly.Day(Monday) = DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
		{Start: MustClock("08:45"), End: MustClock("16:45")},
	}}
	ph := s.EnsurePeriod(PeriodPublicHolidays)
	ph.Found = true
	ph.Mode = ModeClosed
	ph.SetEntry(ExceptionEntry{Key: DateKey(MustDate("2025-12-25")), Closed: true})
	s.Extraction.Found = true

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var decoded Schedule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *s, decoded)
}

func TestScheduleJSONRoundTripWeekdayKey(t *testing.T) {
	s := New(Metadata{ID: "M104"})
	s.Period(PeriodDefault).Found = true
	s.Extraction.Found = true
	sd := s.EnsurePeriod(PeriodSpecialDays)
	sd.Found = true
	sd.SetEntry(ExceptionEntry{Key: WeekdayKey(Tuesday, 1, 3), Day: &DaySchedule{
		Found: true, Open: true, Slots: []TimeSlot{
			{Start: MustClock("09:00"), End: MustClock("12:00")},
		},
	}})

	data, err := json.Marshal(s)
	require.NoError(t, err)
	// Weekday keys carry no dates; the unset fields must not surface as an
	// unparseable zero date.
	assert.NotContains(t, string(data), "0000-00-00")

	var decoded Schedule
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, *s, decoded)
}

func TestDateJSONZero(t *testing.T) {
	data, err := json.Marshal(Date{})
	require.NoError(t, err)
	assert.Equal(t, "null", string(data))

	var d Date
	require.NoError(t, json.Unmarshal([]byte("null"), &d))
	assert.True(t, d.IsZero())
	require.NoError(t, json.Unmarshal([]byte(`""`), &d))
	assert.True(t, d.IsZero())
	assert.Error(t, json.Unmarshal([]byte(`"0000-00-00"`), &d))
}

func TestEnsurePeriod(t *testing.T) {
	s := New(Metadata{ID: "x"})
	require.Len(t, s.Periods, 1)

	p := s.EnsurePeriod(PeriodPublicHolidays)
	assert.Equal(t, ConditionPublicHoliday, p.Condition)
	assert.Nil(t, p.Weekly, "exception periods carry no weekly body")

	again := s.EnsurePeriod(PeriodPublicHolidays)
	assert.Same(t, p, again)

	vac := s.EnsurePeriod(PeriodSummerVacation)
	assert.NotNil(t, vac.Weekly)
}

func TestSetEntryLastWins(t *testing.T) {
	p := Period{Key: PeriodSpecialDays}
	key := WeekdayKey(Tuesday, 1)
	p.SetEntry(ExceptionEntry{Key: key, Closed: true})
	p.SetEntry(ExceptionEntry{Key: key, Day: &DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
		{Start: MustClock("09:00"), End: MustClock("12:00")},
	}}})

	require.Len(t, p.Exceptions, 1)
	assert.False(t, p.Exceptions[0].Closed)
	require.NotNil(t, p.Exceptions[0].Day)
}

func TestNewAppliesDefaultTimezone(t *testing.T) {
	s := New(Metadata{ID: "x"})
	assert.Equal(t, DefaultTimezone, s.Metadata.Timezone)

	s = New(Metadata{ID: "x", Timezone: "Europe/Berlin"})
	assert.Equal(t, "Europe/Berlin", s.Metadata.Timezone)
}

func TestCloneIsDeep(t *testing.T) {
	s := New(Metadata{ID: "x"})
	week := s.Period(PeriodDefault)
	week.Found = true
	*week.Weekly.Day(Monday) = DaySchedule{Found: true, Open: true, Slots: []TimeSlot{
		{Start: MustClock("09:00"), End: MustClock("12:00")},
	}}

	clone := s.Clone()
	clone.Period(PeriodDefault).Weekly.Day(Monday).Slots[0].Start = MustClock("10:00")
	assert.Equal(t, MustClock("09:00"), s.Period(PeriodDefault).Weekly.Day(Monday).Slots[0].Start)
}
