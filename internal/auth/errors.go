package auth

import "errors"

// Authentication errors.
//
// Design decision: We use package-level sentinel errors so the driver
// can distinguish a fatal authentication failure (give up, surface to
// the operator) from transient fetch failures (retry next pass) with
// errors.Is().
var (
	// ErrAuthentication is returned by Acquire after the bounded retry
	// budget is exhausted without a successful challenge solve.
	ErrAuthentication = errors.New("authentication failed: retry budget exhausted")

	// ErrChallengeRejected is returned by a single attempt when the
	// portal rejects the solved challenge answer.
	ErrChallengeRejected = errors.New("challenge answer rejected")

	// ErrTokenNotFound is returned when the entry page does not contain
	// the anti-forgery token marker. This usually means the portal
	// changed its page layout.
	ErrTokenNotFound = errors.New("anti-forgery token not found in entry page")
)
