package broker

import "errors"

// Precondition violations: expected user-facing outcomes, surfaced to the
// initiator with no state change and not logged as errors.
var (
	ErrBlocked            = errors.New("buyer is blocked")
	ErrBuyDisabled        = errors.New("buying is disabled")
	ErrProductUnavailable = errors.New("product unavailable")
	ErrAlreadyConnected   = errors.New("buyer already in a session")
	ErrRequestPending     = errors.New("buyer already has a pending request")
)

// Arbitration outcomes.
var (
	// ErrAlreadyClaimed is what every race loser observes: the pending
	// request is gone or the buyer is already in a session.
	ErrAlreadyClaimed = errors.New("request already claimed")

	// ErrAcceptorBusy rejects an acceptor who is still in a session of
	// their own; accepting a second buyer would break the partial
	// bijection between busy buyers and busy sellers.
	ErrAcceptorBusy = errors.New("acceptor already in a session")

	ErrNotAuthorized = errors.New("not authorized")
)

// Lifecycle and routing outcomes.
var (
	ErrNoActiveSession = errors.New("no active session")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotInSession    = errors.New("sender not in any session")
	ErrDeliveryFailed  = errors.New("delivery failed")
)
