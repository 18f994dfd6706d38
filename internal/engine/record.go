package engine

import (
	"time"

	"github.com/tartampluch/birthday-board/internal/config"
)

// Category tags a record for presentation. The raw tag is kept as read so it
// round-trips unchanged.
type Category string

const (
	// CategoryPerformer marks a voice actor / performer.
	CategoryPerformer Category = "cv"
	// CategoryCharacter marks a fictional character.
	CategoryCharacter Category = "character"
)

// Categories lists the accepted tags.
var Categories = []Category{CategoryPerformer, CategoryCharacter}

// Valid reports whether c is one of the known tags.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// BirthdayRecord is one named entity and its annual recurring date.
// Records are values: nothing mutates them after construction.
type BirthdayRecord struct {
	Name     string
	Month    time.Month
	Day      int
	Category Category

	// OriginalText is the untouched date string from the source, for display.
	OriginalText string
}

// ValidMonthDay reports whether month/day form a calendar date when
// projected onto a leap year, so 2/29 is valid while 2/30 and 4/31 are not.
func ValidMonthDay(month time.Month, day int) bool {
	if month < time.January || month > time.December || day < 1 {
		return false
	}
	// time.Date normalizes overflow (4/31 -> 5/1); a round trip detects it.
	d := time.Date(config.DefaultLeapYear, month, day, 0, 0, 0, 0, time.UTC)
	return d.Month() == month && d.Day() == day
}

// IsLeapYear reports whether year has a Feb 29 in the Gregorian calendar.
func IsLeapYear(year int) bool {
	return year%4 == 0 && (year%100 != 0 || year%400 == 0)
}
