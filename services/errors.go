package services

import "errors"

// Engine error taxonomy. None of these are fatal to the process; each is
// scoped to a single event or sweep iteration.
var (
	// ErrInvalidTimezone reports an unknown IANA zone identifier. Callers
	// fall back to the configured default zone and continue.
	ErrInvalidTimezone = errors.New("invalid timezone")

	// ErrStaleCheckIn reports a check-in dated before the streak's last
	// accepted date. The event is ignored and state is left unchanged.
	ErrStaleCheckIn = errors.New("stale check-in")

	// ErrStoreUnavailable wraps transient storage failures. The single
	// event is retried with bounded backoff.
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrVersionConflict reports a lost optimistic write race on the
	// streak row. The read-modify-write is re-run.
	ErrVersionConflict = errors.New("streak version conflict")
)
