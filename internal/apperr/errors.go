package apperr

import "errors"

// ErrInvalid is returned when the input fails domain validation
// (malformed geopoint, missing field). Rejected before any state change.
var ErrInvalid = errors.New("invalid input")

// ErrNotFound indicates that the requested delivery, conflict or actor
// does not exist.
var ErrNotFound = errors.New("not found")

// ErrForbidden indicates a role or ownership mismatch. Handlers must not
// leak which action would have been allowed.
var ErrForbidden = errors.New("forbidden")

// ErrConflict indicates a state-guard violation, e.g. accepting a delivery
// that already has a driver. Repeating the same action never mutates state.
var ErrConflict = errors.New("conflicting state")

// ErrUpstream indicates a persistence or transport failure. Event emission
// is skipped because the state was never committed.
var ErrUpstream = errors.New("upstream failure")
