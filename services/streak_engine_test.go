package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdvanceFirstCheckIn(t *testing.T) {
	day := mustDate(2024, 5, 1)

	next, outcome, err := Advance(StreakState{}, day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeStarted, outcome)
	assert.Equal(t, StreakState{Current: 1, Reverse: 0, LastDate: day}, next)
}

func TestAdvanceExtendsConsecutiveDays(t *testing.T) {
	state := StreakState{}
	days := []LocalDate{
		mustDate(2024, 5, 1),
		mustDate(2024, 5, 2),
		mustDate(2024, 5, 3),
	}

	for i, day := range days {
		var outcome Outcome
		var err error
		state, outcome, err = Advance(state, day)
		require.NoError(t, err)
		if i == 0 {
			assert.Equal(t, OutcomeStarted, outcome)
		} else {
			assert.Equal(t, OutcomeExtended, outcome)
		}
		assert.Equal(t, i+1, state.Current)
		assert.Equal(t, 0, state.Reverse)
		assert.Equal(t, day, state.LastDate)
	}
}

func TestAdvanceSameDayIsDuplicate(t *testing.T) {
	day := mustDate(2024, 5, 3)
	prev := StreakState{Current: 3, Reverse: 0, LastDate: day}

	next, outcome, err := Advance(prev, day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, prev, next, "duplicate leaves state untouched")

	// Applying the duplicate again is still a no-op.
	again, outcome, err := Advance(next, day)
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, outcome)
	assert.Equal(t, prev, again)
}

func TestAdvanceGapResetsStreak(t *testing.T) {
	tests := []struct {
		name        string
		last        LocalDate
		day         LocalDate
		wantReverse int
	}{
		{"one missed day", mustDate(2024, 5, 3), mustDate(2024, 5, 5), 1},
		{"two missed days", mustDate(2024, 5, 3), mustDate(2024, 5, 6), 2},
		{"gap across month boundary", mustDate(2024, 4, 29), mustDate(2024, 5, 2), 2},
		{"long absence", mustDate(2024, 4, 1), mustDate(2024, 5, 1), 29},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := StreakState{Current: 5, Reverse: 0, LastDate: tt.last}
			next, outcome, err := Advance(prev, tt.day)
			require.NoError(t, err)
			assert.Equal(t, OutcomeReset, outcome)
			assert.Equal(t, 1, next.Current, "reset always restarts at one")
			assert.Equal(t, tt.wantReverse, next.Reverse)
			assert.Equal(t, tt.day, next.LastDate)
		})
	}
}

func TestAdvanceRejectsEarlierDay(t *testing.T) {
	prev := StreakState{Current: 4, Reverse: 0, LastDate: mustDate(2024, 5, 10)}

	tests := []LocalDate{
		mustDate(2024, 5, 9),
		mustDate(2024, 5, 1),
		mustDate(2023, 12, 31),
	}
	for _, day := range tests {
		next, _, err := Advance(prev, day)
		assert.ErrorIs(t, err, ErrStaleCheckIn)
		assert.Equal(t, prev, next, "rejected check-in never rewinds state")
	}
}

func TestAdvanceLastDateNeverMovesBackward(t *testing.T) {
	// Feed a shuffled delivery order; the recorded date must be
	// non-decreasing across every accepted transition.
	state := StreakState{}
	order := []LocalDate{
		mustDate(2024, 5, 1),
		mustDate(2024, 5, 2),
		mustDate(2024, 5, 1), // late redelivery
		mustDate(2024, 5, 2), // duplicate
		mustDate(2024, 5, 5), // gap
	}

	prevLast := LocalDate{}
	for _, day := range order {
		next, _, err := Advance(state, day)
		if err != nil {
			assert.ErrorIs(t, err, ErrStaleCheckIn)
			continue
		}
		state = next
		assert.False(t, state.LastDate.Before(prevLast))
		prevLast = state.LastDate
	}

	assert.Equal(t, StreakState{Current: 1, Reverse: 2, LastDate: mustDate(2024, 5, 5)}, state)
}
