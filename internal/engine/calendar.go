package engine

import (
	"bytes"
	"fmt"
	"time"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"
	"github.com/tartampluch/birthday-board/internal/config"
	"github.com/teambition/rrule-go"
)

// CalendarOptions customises the generated feed.
type CalendarOptions struct {
	// Name is published as X-WR-CALNAME.
	Name string

	// ReminderTrigger is an ISO8601 duration (e.g. "-P1D"). Empty disables alarms.
	ReminderTrigger string

	// FormatSummary allows the caller to inject localized event titles.
	FormatSummary func(rec BirthdayRecord) string
}

// BuildCalendar renders records as an iCalendar feed with one yearly all-day
// event per record. The first instance is the previous year's occurrence so
// that calendar clients scrolling back still see it.
func BuildCalendar(now time.Time, records []BirthdayRecord, opts CalendarOptions) ([]byte, error) {
	if len(records) == 0 {
		// A valid VCALENDAR is returned even if empty so clients don't flag the feed.
		return []byte(config.StubVCalendar), nil
	}

	now = InReferenceZone(now)

	cal := ical.NewCalendar()
	cal.Props.SetText(config.PropVersion, config.ICalVersion)
	cal.Props.SetText(config.PropProdid, config.ICalProdid)
	cal.Props.SetText(config.PropCalScale, config.ICalScale)
	cal.Props.SetText(config.PropMethod, config.ICalMethod)
	name := opts.Name
	if name == "" {
		name = config.DefaultCalendarName
	}
	cal.Props.SetText(config.PropXWRCalName, name)

	// RFC 7986: Suggest a refresh interval.
	refreshProp := ical.NewProp(config.PropRefresh)
	refreshProp.SetDuration(config.DefaultICalRefresh)
	cal.Props.Set(refreshProp)

	dtStampProp := ical.NewProp(config.PropDTStamp)
	dtStampProp.SetDateTime(now.UTC())

	for _, rec := range records {
		event := newBirthdayEvent(now, rec, opts)
		event.Props.Set(dtStampProp)
		cal.Children = append(cal.Children, event.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("%s: %w", config.ErrICalEncode, err)
	}
	return buf.Bytes(), nil
}

func newBirthdayEvent(now time.Time, rec BirthdayRecord, opts CalendarOptions) *ical.Event {
	event := ical.NewEvent()
	event.Props.SetText(config.PropUID, EventUID(rec))

	summary := fmt.Sprintf(config.FallbackSummary, rec.Name)
	if opts.FormatSummary != nil {
		summary = opts.FormatSummary(rec)
	}
	event.Props.SetText(config.PropSummary, summary)
	event.Props.SetText(config.PropCategories, string(rec.Category))

	dtStartProp := ical.NewProp(config.PropDTStart)
	dtStartProp.SetDate(OccurrenceIn(now.Year()-1, rec.Month, rec.Day, ReferenceZone))
	event.Props.Set(dtStartProp)

	rule := RecurrenceRule(rec)
	event.Props.SetRecurrenceRule(&rule)

	if opts.ReminderTrigger != "" {
		addAlarm(event, opts.ReminderTrigger, summary)
	}
	return event
}

// RecurrenceRule returns the yearly rule matching the record's occurrences.
// Leap-day records recur on the last day of February, which is Feb 29 in
// leap years and Feb 28 otherwise, the same rule OccurrenceIn applies.
func RecurrenceRule(rec BirthdayRecord) rrule.ROption {
	day := rec.Day
	if rec.Month == time.February && rec.Day == 29 {
		day = config.LastDayOfMonth
	}
	return rrule.ROption{
		Freq:       rrule.YEARLY,
		Bymonth:    []int{int(rec.Month)},
		Bymonthday: []int{day},
	}
}

// EventUID derives a stable UID from the record so that refreshes update
// existing calendar entries instead of duplicating them.
func EventUID(rec BirthdayRecord) string {
	input := fmt.Sprintf(config.FormatHashInput, rec.Name, int(rec.Month), rec.Day, config.UIDSalt)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(input))
	return fmt.Sprintf(config.FormatUID, id.String(), config.ICalDomain)
}

// addAlarm appends a DISPLAY alarm (notification) to the event.
func addAlarm(event *ical.Event, trigger, description string) {
	alarm := ical.NewComponent(config.ICalComponent)
	alarm.Props.SetText(config.PropAction, config.ICalAction)
	alarm.Props.SetText(config.PropDescription, description)

	// Set trigger manually to avoid "VALUE=TEXT" param
	triggerProp := ical.NewProp(config.PropTrigger)
	triggerProp.Value = trigger
	alarm.Props.Set(triggerProp)

	event.Children = append(event.Children, alarm)
}
