package services

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/wirdly/wirdbot/models"
	"github.com/wirdly/wirdbot/utils"
)

// maxVersionRetries bounds re-runs of the read-modify-write when two
// near-simultaneous check-ins for the same user race on the streak row.
const maxVersionRetries = 3

// CheckInEvent is the transport-agnostic record handed to the engine for a
// recognized checkmark.
type CheckInEvent struct {
	TelegramID int64
	Username   string
	FirstName  string
	Marker     string
	Timestamp  time.Time
	TraceID    string
}

// CheckInResult reports what a check-in did to the user's streak.
type CheckInResult struct {
	User    *models.User
	Outcome Outcome
	State   StreakState
	Date    LocalDate
}

// CheckInService applies recognized check-ins against the store. It owns the
// timezone fallback, the optimistic concurrency loop, and the bounded retry
// of transient store failures.
type CheckInService struct {
	store      Store
	defaultTZ  string
	retryLimit uint64
}

// NewCheckInService builds the service. defaultTZ is the zone used when a
// user has none stored or a stored zone no longer resolves.
func NewCheckInService(store Store, defaultTZ string, retryLimit int) *CheckInService {
	if retryLimit <= 0 {
		retryLimit = 3
	}
	return &CheckInService{store: store, defaultTZ: defaultTZ, retryLimit: uint64(retryLimit)}
}

// LocalDateFor resolves the calendar date of instant in the user's zone,
// falling back to the service default when the stored zone is missing or
// invalid.
func (s *CheckInService) LocalDateFor(user *models.User, instant time.Time) LocalDate {
	tz := user.Timezone
	if tz == "" {
		tz = s.defaultTZ
	}
	date, err := ResolveLocalDate(instant, tz)
	if err == nil {
		return date
	}
	if utils.Sugar != nil {
		utils.Sugar.Warnf("user %d has unresolvable timezone %q, falling back to %s", user.TelegramID, tz, s.defaultTZ)
	}
	date, err = ResolveLocalDate(instant, s.defaultTZ)
	if err != nil {
		// Default zone comes from config and is validated at boot; UTC is
		// the last resort.
		return DateOf(instant.UTC())
	}
	return date
}

// Apply runs one check-in event through the state machine and persists the
// transition atomically. Re-delivering the same event is idempotent: the
// second application lands on OutcomeDuplicate with identical state.
//
// ErrStaleCheckIn is returned for backdated events; ErrStoreUnavailable when
// bounded retries are exhausted and the user should be told to try again.
func (s *CheckInService) Apply(ctx context.Context, ev CheckInEvent) (*CheckInResult, error) {
	user, err := s.withUserRetry(ctx, ev)
	if err != nil {
		return nil, err
	}

	date := s.LocalDateFor(user, ev.Timestamp)

	var result *CheckInResult
	backoff := retry.WithMaxRetries(s.retryLimit, retry.NewExponential(100*time.Millisecond))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		res, err := s.applyOnce(ctx, user, date, ev)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// applyOnce performs one optimistic read-modify-write pass, re-reading on
// version conflicts up to maxVersionRetries times.
func (s *CheckInService) applyOnce(ctx context.Context, user *models.User, date LocalDate, ev CheckInEvent) (*CheckInResult, error) {
	for attempt := 0; ; attempt++ {
		streak, err := s.store.GetStreak(ctx, user.ID)
		if err != nil {
			return nil, err
		}

		prev := StreakState{Current: streak.Current, Reverse: streak.Reverse}
		if streak.LastCheckDate != nil {
			prev.LastDate = DateOf(streak.LastCheckDate.UTC())
		}

		next, outcome, err := Advance(prev, date)
		if err != nil {
			return nil, err
		}

		res := &CheckInResult{User: user, Outcome: outcome, State: next, Date: date}
		if outcome == OutcomeDuplicate {
			return res, nil
		}

		prevVersion := streak.Version
		last := next.LastDate.Time()
		streak.Current = next.Current
		streak.Reverse = next.Reverse
		streak.LastCheckDate = &last

		checkIn := &models.CheckIn{
			UserID:     user.ID,
			LocalDate:  date.Time(),
			SourceTime: ev.Timestamp,
			Marker:     ev.Marker,
		}

		err = s.store.ApplyCheckIn(ctx, streak, prevVersion, checkIn)
		if err == nil {
			if utils.Sugar != nil {
				utils.Sugar.Infow("check-in applied",
					"trace_id", ev.TraceID,
					"telegram_id", ev.TelegramID,
					"date", date.String(),
					"outcome", string(outcome),
					"current", next.Current,
					"reverse", next.Reverse,
				)
			}
			return res, nil
		}
		if errors.Is(err, ErrVersionConflict) && attempt < maxVersionRetries {
			continue
		}
		return nil, err
	}
}

// withUserRetry loads or creates the user with the same bounded backoff
// policy as the main write path.
func (s *CheckInService) withUserRetry(ctx context.Context, ev CheckInEvent) (*models.User, error) {
	var user *models.User
	backoff := retry.WithMaxRetries(s.retryLimit, retry.NewExponential(100*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		u, err := s.store.GetOrCreateUser(ctx, ev.TelegramID, ev.Username, ev.FirstName)
		if err != nil {
			if errors.Is(err, ErrStoreUnavailable) {
				return retry.RetryableError(err)
			}
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
