package services

// Outcome tags the effect a check-in had on a streak.
type Outcome string

const (
	// OutcomeStarted is the user's first ever accepted check-in.
	OutcomeStarted Outcome = "STARTED"
	// OutcomeExtended continues an unbroken run of consecutive days.
	OutcomeExtended Outcome = "EXTENDED"
	// OutcomeDuplicate is a repeated checkmark within the same local day.
	OutcomeDuplicate Outcome = "DUPLICATE_IGNORED"
	// OutcomeReset starts over after one or more missed days.
	OutcomeReset Outcome = "RESET_AND_STARTED"
)

// StreakState is the value the state machine operates on.
type StreakState struct {
	Current  int
	Reverse  int
	LastDate LocalDate // zero before the first check-in
}

// Advance computes the streak transition for a check-in on day. It is a pure
// function: prev is never mutated, and persistence is the caller's concern.
//
// Same day is a duplicate no-op; the following day extends; any later day
// resets the streak to 1 and records the skipped days in Reverse; any
// earlier day is rejected as stale so out-of-order transport delivery can
// never rewind state.
func Advance(prev StreakState, day LocalDate) (StreakState, Outcome, error) {
	if prev.LastDate.IsZero() {
		return StreakState{Current: 1, Reverse: 0, LastDate: day}, OutcomeStarted, nil
	}

	switch {
	case day.Equal(prev.LastDate):
		return prev, OutcomeDuplicate, nil

	case day.Before(prev.LastDate):
		return prev, "", ErrStaleCheckIn

	case day.Equal(prev.LastDate.Next()):
		return StreakState{
			Current:  prev.Current + 1,
			Reverse:  0,
			LastDate: day,
		}, OutcomeExtended, nil

	default:
		// Days strictly between the old date and the new one were missed.
		missed := prev.LastDate.DaysUntil(day) - 1
		return StreakState{
			Current:  1,
			Reverse:  missed,
			LastDate: day,
		}, OutcomeReset, nil
	}
}
