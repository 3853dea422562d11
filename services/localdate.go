package services

import (
	"fmt"
	"time"
)

// LocalDate is a calendar date with no time component, derived from an
// absolute instant under a specific timezone's rules. It is the only unit of
// time the streak engine reasons about.
type LocalDate struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t (interpreted in its own location) to a LocalDate.
func DateOf(t time.Time) LocalDate {
	y, m, d := t.Date()
	return LocalDate{Year: y, Month: m, Day: d}
}

// ResolveLocalDate converts an absolute instant to the calendar date it falls
// on in the given IANA zone, honoring DST transitions. An unknown zone name
// returns ErrInvalidTimezone; callers fall back to the default zone.
func ResolveLocalDate(instant time.Time, tz string) (LocalDate, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return LocalDate{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}
	return DateOf(instant.In(loc)), nil
}

// Time returns the date at midnight UTC, the canonical form persisted in
// date columns.
func (d LocalDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Next returns the following calendar day.
func (d LocalDate) Next() LocalDate {
	return DateOf(d.Time().AddDate(0, 0, 1))
}

// DaysUntil returns the number of calendar days from d to other. Negative
// when other is earlier.
func (d LocalDate) DaysUntil(other LocalDate) int {
	return int(other.Time().Sub(d.Time()) / (24 * time.Hour))
}

// Equal reports whether both values name the same calendar day.
func (d LocalDate) Equal(other LocalDate) bool {
	return d == other
}

// Before reports whether d is an earlier calendar day than other.
func (d LocalDate) Before(other LocalDate) bool {
	return d.Time().Before(other.Time())
}

// IsZero reports whether d is the zero value (no date recorded).
func (d LocalDate) IsZero() bool {
	return d == LocalDate{}
}

func (d LocalDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
