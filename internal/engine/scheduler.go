package engine

import (
	"cmp"
	"slices"
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
)

// Occurrence is the per-record result of one scheduling pass.
type Occurrence struct {
	// Record is the scheduled record (a copy; records are immutable values).
	Record BirthdayRecord

	// Index is the record's position in the input, the final tie-breaker.
	Index int

	// Next is the next occurrence at reference-zone midnight. For a record
	// whose date is today, Next is today's midnight.
	Next time.Time

	// TimeUntilNext is the exact duration from now to Next, zero exactly
	// when the occurrence is today. It is always in [0, 366 days).
	TimeUntilNext time.Duration

	// IsToday reports whether Next falls on now's reference-zone date.
	IsToday bool

	// DaysUntil counts calendar days from today to Next, for display.
	DaysUntil int
}

// Result is the output of Schedule.
type Result struct {
	// Now is the reference instant the pass was computed for.
	Now time.Time

	// Today holds the occurrences falling on Now's date, in Ordered order.
	Today []Occurrence

	// Ordered holds every record, nearest first. Today is always its prefix.
	Ordered []Occurrence
}

// Upcoming returns the occurrences of Ordered that are not today.
func (r Result) Upcoming() []Occurrence {
	return r.Ordered[len(r.Today):]
}

// Next returns the nearest occurrence after today, if any.
func (r Result) Next() (Occurrence, bool) {
	up := r.Upcoming()
	if len(up) == 0 {
		return Occurrence{}, false
	}
	return up[0], true
}

// Schedule computes, for every record, its next occurrence relative to now
// and orders all records by proximity. now is converted to ReferenceZone.
//
// Ordering is ascending TimeUntilNext, then month, then day, then input
// position, so the output is fully deterministic. Schedule performs no I/O
// and never fails; an empty input yields an empty Result.
func Schedule(now time.Time, records []BirthdayRecord) Result {
	now = InReferenceZone(now)
	res := Result{
		Now:     now,
		Today:   []Occurrence{},
		Ordered: make([]Occurrence, 0, len(records)),
	}

	today := startOfDay(now)
	for i, rec := range records {
		next := NextOccurrence(now, rec.Month, rec.Day)
		occ := Occurrence{
			Record:    rec,
			Index:     i,
			Next:      next,
			IsToday:   next.Equal(today),
			DaysUntil: daysBetween(today, next),
		}
		if !occ.IsToday {
			occ.TimeUntilNext = next.Sub(now)
		}
		res.Ordered = append(res.Ordered, occ)
	}

	SortOccurrences(res.Ordered)

	for _, occ := range res.Ordered {
		if !occ.IsToday {
			break
		}
		res.Today = append(res.Today, occ)
	}
	return res
}

// SortOccurrences sorts in place by (TimeUntilNext, month, day, Index).
// Sorting an already sorted slice leaves it unchanged.
func SortOccurrences(occs []Occurrence) {
	slices.SortStableFunc(occs, compareOccurrences)
}

func compareOccurrences(a, b Occurrence) int {
	return cmp.Or(
		cmp.Compare(a.TimeUntilNext, b.TimeUntilNext),
		cmp.Compare(a.Record.Month, b.Record.Month),
		cmp.Compare(a.Record.Day, b.Record.Day),
		cmp.Compare(a.Index, b.Index),
	)
}

// NextOccurrence returns the midnight (in now's location) of the first
// occurrence of month/day on or after now's date, searching now's year and
// then the following one.
//
// A Feb 29 date falls back to Feb 28 in a non-leap candidate year. The
// fallback is decided per candidate year, so a 2/29 record evaluated on
// 2023-03-01 resolves to 2024-02-29, not 2024-02-28.
func NextOccurrence(now time.Time, month time.Month, day int) time.Time {
	loc := now.Location()
	today := startOfDay(now)

	candidate := OccurrenceIn(now.Year(), month, day, loc)
	if candidate.Before(today) {
		candidate = OccurrenceIn(now.Year()+1, month, day, loc)
	}
	return candidate
}

// OccurrenceIn returns the midnight of month/day in year, mapping Feb 29 to
// Feb 28 when year is not a leap year.
func OccurrenceIn(year int, month time.Month, day int, loc *time.Location) time.Time {
	if month == time.February && day == 29 && !IsLeapYear(year) {
		day = 28
	}
	return time.Date(year, month, day, 0, 0, 0, 0, loc)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// daysBetween counts whole days between two midnights of a fixed-offset zone.
func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours()) / config.HoursPerDay
}
