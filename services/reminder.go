package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/wirdly/wirdbot/models"
)

// EvaluateReminders decides which reminder kinds are due for one user at one
// moment, before any de-duplication. nowLocal must already be in the user's
// zone and today its calendar date; reminderTime is "HH:MM" in that zone.
//
//   - missed_streak: the user skipped at least one full day and has not
//     checked in today either.
//   - daily_nudge: no check-in today and the configured time of day has
//     passed.
//
// A user with no check-in history only ever receives nudges; there is no
// streak to have missed.
func EvaluateReminders(nowLocal time.Time, today LocalDate, state StreakState, reminderTime string) []string {
	var due []string

	if !state.LastDate.IsZero() && state.LastDate.DaysUntil(today) > 1 {
		due = append(due, models.ReminderKindMissedStreak)
	}

	if (state.LastDate.IsZero() || state.LastDate.Before(today)) && reminderTimePassed(nowLocal, reminderTime) {
		due = append(due, models.ReminderKindDailyNudge)
	}

	return due
}

// reminderTimePassed reports whether the local clock is at or past the
// "HH:MM" mark. Malformed values disable the nudge rather than firing it all
// day.
func reminderTimePassed(nowLocal time.Time, reminderTime string) bool {
	hour, minute, err := ParseClock(reminderTime)
	if err != nil {
		return false
	}
	return nowLocal.Hour()*60+nowLocal.Minute() >= hour*60+minute
}

// ParseClock parses a "HH:MM" time-of-day string.
func ParseClock(value string) (hour, minute int, err error) {
	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
