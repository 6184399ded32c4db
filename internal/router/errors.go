package router

import "errors"

// Typed faults the router recognizes, distinct from the
// transport package's lower-level classification.
var (
	ErrRateLimited         = errors.New("router: rate limited")
	ErrSequenceViolation   = errors.New("router: sequence violation")
	ErrVectorClockStale    = errors.New("router: vector clock stale")
	ErrIntegrityFailure    = errors.New("router: relay envelope integrity failure")
	ErrMaxRetriesExceeded  = errors.New("router: max retries exceeded")
	ErrDeadlineExceeded    = errors.New("router: deadline exceeded")
	ErrStoreFault          = errors.New("router: store fault")
	ErrCryptoFailure       = errors.New("router: crypto failure")
	ErrNoRoute             = errors.New("router: no known route to peer")
)
