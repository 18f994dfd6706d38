package engine_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/tartampluch/birthday-board/internal/engine"
	"github.com/teambition/rrule-go"
)

func decodeCalendar(t *testing.T, data []byte) *ical.Calendar {
	t.Helper()
	cal, err := ical.NewDecoder(bytes.NewReader(data)).Decode()
	require.NoError(t, err)
	return cal
}

func TestBuildCalendar_Empty(t *testing.T) {
	data, err := engine.BuildCalendar(jst(2024, 1, 1, 0, 0, 0), nil, engine.CalendarOptions{})
	require.NoError(t, err)

	assert.Equal(t, config.StubVCalendar, string(data))
	cal := decodeCalendar(t, data)
	assert.Empty(t, cal.Events())
}

func TestBuildCalendar_Events(t *testing.T) {
	now := jst(2024, 4, 10, 9, 0, 0)
	records := []engine.BirthdayRecord{
		{Name: "Alice", Month: time.March, Day: 14, Category: engine.CategoryPerformer, OriginalText: "3月14日"},
		{Name: "Leap", Month: time.February, Day: 29, Category: engine.CategoryCharacter, OriginalText: "2月29日"},
	}
	opts := engine.CalendarOptions{
		Name:            "Seiyuu",
		ReminderTrigger: "-P1D",
		FormatSummary: func(rec engine.BirthdayRecord) string {
			return "🎂 " + rec.Name
		},
	}

	data, err := engine.BuildCalendar(now, records, opts)
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, "X-WR-CALNAME:Seiyuu")
	assert.Contains(t, raw, "DTSTART;VALUE=DATE:20230314")
	assert.Contains(t, raw, "DTSTART;VALUE=DATE:20230228", "previous year is not leap")
	assert.Contains(t, raw, "TRIGGER:-P1D")
	assert.NotContains(t, raw, "TRIGGER;VALUE=TEXT")

	cal := decodeCalendar(t, data)
	events := cal.Events()
	require.Len(t, events, 2)

	alice := events[0]
	assert.Equal(t, engine.EventUID(records[0]), alice.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "🎂 Alice", alice.Props.Get(ical.PropSummary).Value)
	assert.Equal(t, string(engine.CategoryPerformer), alice.Props.Get(ical.PropCategories).Value)
	require.Len(t, alice.Children, 1)
	assert.Equal(t, ical.CompAlarm, alice.Children[0].Name)

	rule, err := events[1].Props.RecurrenceRule()
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, rrule.YEARLY, rule.Freq)
	assert.Equal(t, []int{2}, rule.Bymonth)
	assert.Equal(t, []int{config.LastDayOfMonth}, rule.Bymonthday)
}

func TestBuildCalendar_Defaults(t *testing.T) {
	records := []engine.BirthdayRecord{rec("Bob", time.June, 1)}

	data, err := engine.BuildCalendar(jst(2024, 1, 1, 0, 0, 0), records, engine.CalendarOptions{})
	require.NoError(t, err)

	raw := string(data)
	assert.Contains(t, raw, "X-WR-CALNAME:"+config.DefaultCalendarName)
	assert.Contains(t, raw, "SUMMARY:Birthday: Bob")
	assert.NotContains(t, raw, "BEGIN:VALARM")
}

func TestEventUID(t *testing.T) {
	a := rec("Alice", time.March, 14)
	b := rec("Alice", time.March, 15)

	assert.Equal(t, engine.EventUID(a), engine.EventUID(a), "UID must be stable across refreshes")
	assert.NotEqual(t, engine.EventUID(a), engine.EventUID(b))
	assert.True(t, strings.HasSuffix(engine.EventUID(a), "@"+config.ICalDomain))
}

// TestRecurrenceRule_MatchesNextOccurrence checks that calendar clients
// expanding the feed see the same dates the board shows.
func TestRecurrenceRule_MatchesNextOccurrence(t *testing.T) {
	dates := []struct {
		month time.Month
		day   int
	}{
		{time.January, 1},
		{time.February, 28},
		{time.February, 29},
		{time.March, 1},
		{time.December, 31},
	}
	nows := []time.Time{
		jst(2023, 1, 1, 0, 0, 0),
		jst(2023, 2, 28, 12, 0, 0),
		jst(2023, 3, 1, 0, 0, 0),
		jst(2024, 2, 29, 23, 0, 0),
		jst(2024, 12, 31, 23, 59, 0),
		jst(2099, 6, 1, 0, 0, 0),
	}

	for _, d := range dates {
		r := rec("x", d.month, d.day)
		for _, now := range nows {
			opt := engine.RecurrenceRule(r)
			opt.Dtstart = engine.OccurrenceIn(now.Year()-1, d.month, d.day, engine.ReferenceZone)
			rule, err := rrule.NewRRule(opt)
			require.NoError(t, err)

			today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, engine.ReferenceZone)
			want := engine.NextOccurrence(now, d.month, d.day)
			got := rule.After(today, true)

			assert.True(t, want.Equal(got), "%d/%d at %s: rrule %s, schedule %s", d.month, d.day, now, got, want)
		}
	}
}
