package authsync

import "errors"

var (
	// ErrInvalidEmail is returned when a candidate email fails the shape check
	// before any remote call is attempted.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrWeakPassword is returned when a sign-up password fails the length or
	// character-class policy.
	ErrWeakPassword = errors.New("password does not meet strength requirements")

	// ErrInvalidCredentials is the provider's rejection of an email/password pair.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned when the provider has no account for the identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrAccountExists is returned when sign-up targets an existing identifier.
	ErrAccountExists = errors.New("account already exists")
	// ErrAccountUnverified is returned when the account exists but email
	// verification is still pending.
	ErrAccountUnverified = errors.New("account unverified")
	// ErrSessionExpired is returned when the provider rejects an expired session.
	ErrSessionExpired = errors.New("session expired")
	// ErrProviderUnavailable is returned when the session store backend cannot
	// be reached.
	ErrProviderUnavailable = errors.New("session store unavailable")

	// ErrStoreRequired is returned by Build when no SessionStore was supplied.
	ErrStoreRequired = errors.New("session store required")
	// ErrAlreadyStarted is returned by a second call to Start.
	ErrAlreadyStarted = errors.New("synchronizer already started")
	// ErrNotStarted is returned by operations that need the event loop running.
	ErrNotStarted = errors.New("synchronizer not started")
	// ErrClosed is returned once Close has been called.
	ErrClosed = errors.New("synchronizer closed")
)

// IsValidationError reports whether err is a pre-network input-shape failure.
// Validation errors never reach the provider and never generate audit entries.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidEmail) || errors.Is(err, ErrWeakPassword)
}

// IsAuthError reports whether err is a remote rejection from the identity
// provider, as opposed to malformed input or a lifecycle error.
func IsAuthError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAccountExists),
		errors.Is(err, ErrAccountUnverified),
		errors.Is(err, ErrSessionExpired),
		errors.Is(err, ErrProviderUnavailable):
		return true
	default:
		return false
	}
}
