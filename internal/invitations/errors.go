package invitations

import "errors"

// Error taxonomy for the invitation engine. Handlers map these to HTTP
// responses with errors.Is; the three non-redeemable states are expected,
// user-facing outcomes, not faults.
var (
	// ErrNotFound covers unknown invitations and unknown tokens alike, so a
	// caller cannot probe which tokens exist.
	ErrNotFound = errors.New("invitation not found")
	// ErrValidation marks malformed constraints or registration payloads.
	ErrValidation = errors.New("validation failed")
	// ErrExpired means the invitation's expiry has passed.
	ErrExpired = errors.New("invitation expired")
	// ErrExhausted means the usage cap has been reached. Terminal for the
	// attempt: retrying the same token cannot succeed until the cap changes.
	ErrExhausted = errors.New("invitation usage limit reached")
	// ErrInactive means an administrator deactivated the invitation.
	ErrInactive = errors.New("invitation inactive")
	// ErrTokenConflict is an internal token collision that survived one
	// regeneration. With 256-bit tokens this indicates misconfiguration.
	ErrTokenConflict = errors.New("invitation token conflict")
)
