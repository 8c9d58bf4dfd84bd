package authsync

import (
	"context"
	"time"
)

// State is the synchronizer's position in its three-state machine.
type State uint8

const (
	// StateUninitialized means no authoritative snapshot has arrived yet.
	StateUninitialized State = iota
	// StateAuthenticated means the last applied snapshot carried a session.
	StateAuthenticated
	// StateUnauthenticated means the last applied snapshot carried no session.
	StateUnauthenticated
)

// String describes the state for logs and test failures.
func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	default:
		return "uninitialized"
	}
}

// EventKind classifies a session-change notification from the store.
//
// The kind carries the "class of event" that decides whether a transition is
// edge-triggered (sign-in/sign-out completion, which may navigate) or a routine
// re-validation of an already-known state (which never navigates).
type EventKind string

const (
	// EventSignedIn is delivered when a credential sign-in completed.
	EventSignedIn EventKind = "signed_in"
	// EventSignedOut is delivered when a sign-out completed.
	EventSignedOut EventKind = "signed_out"
	// EventTokenRefreshed is delivered when an existing session was re-validated
	// or its token rotated. It never triggers navigation.
	EventTokenRefreshed EventKind = "token_refreshed"
	// EventInitialSession is delivered by stores that replay the current session
	// to new subscribers. It never triggers navigation.
	EventInitialSession EventKind = "initial_session"
)

// Session is the cached, possibly-stale copy of the provider's token bundle for
// an authenticated principal. The identity provider owns the authoritative
// record; the synchronizer only holds what the last snapshot carried.
type Session struct {
	ID          string
	SubjectID   string
	AccessToken string
	ExpiresAt   time.Time

	// User is the identity record the provider attached to the session, when it
	// sends one. When nil, the synchronizer derives the identity from the
	// access-token claims via the configured IdentityParser.
	User *UserIdentity
}

// Expired reports whether the session's expiry has passed.
func (s *Session) Expired(now time.Time) bool {
	if s == nil {
		return true
	}
	return !s.ExpiresAt.IsZero() && s.ExpiresAt.Before(now)
}

// UserIdentity is the user record derived from a session.
type UserIdentity struct {
	ID      string
	Email   string
	Name    string
	Company string
}

// UserMetadata carries the free-form profile fields collected at sign-up.
type UserMetadata struct {
	Name    string
	Company string
}

// Credentials is the result of a successful credential operation against the
// session store.
type Credentials struct {
	// Session is nil when the provider requires verification before a session
	// can exist (sign-up with email confirmation pending).
	Session *Session
	User    *UserIdentity
}

// SessionStore is the external identity-provider collaborator. Implementations
// must be safe for concurrent use; every method that reaches the network takes
// a context. Timeout semantics are entirely the store's — the synchronizer
// imposes none of its own.
type SessionStore interface {
	// CurrentSession returns the session the store currently considers active,
	// or nil when there is none. One-shot; the synchronizer calls it exactly
	// once at Start as a liveness backstop for the subscription.
	CurrentSession(ctx context.Context) (*Session, error)

	// Subscribe registers fn for session-change notifications and returns an
	// unsubscribe function. fn may be invoked from any goroutine; the
	// synchronizer serializes the resulting state mutations itself.
	Subscribe(fn func(kind EventKind, session *Session)) (unsubscribe func(), err error)

	SignInWithCredentials(ctx context.Context, email, password string) (*Credentials, error)
	SignUpWithCredentials(ctx context.Context, email, password string, meta UserMetadata) (*Credentials, error)
	SignOut(ctx context.Context) error
}

// Route names a navigation destination. Routes are opaque to the synchronizer;
// only equality and membership in the pre-auth set matter.
type Route string

// Navigator performs the actual navigation side effect. CurrentRoute is
// consulted before a post-sign-in redirect so users already inside the
// application are never bounced to the home route.
type Navigator interface {
	CurrentRoute() Route
	Navigate(route Route)
}

// Notifier surfaces user-visible notices that must not become errors: the
// "check your email" outcome after a verification-pending sign-up, and
// swallowed sign-out failures.
type Notifier interface {
	Notify(message string)
}

// IdentityParser derives a UserIdentity from a raw access token. Used when the
// provider returns sessions without an attached user record.
type IdentityParser func(accessToken string) (*UserIdentity, error)

// Snapshot is a consistent copy of the synchronizer's state. The {Session, User}
// pair always comes from a single snapshot application.
type Snapshot struct {
	Session *Session
	User    *UserIdentity

	// Loading is true until the first authoritative snapshot arrives, and while
	// a credential operation is in flight.
	Loading bool

	// Initialized latches true permanently once either the subscription or the
	// initial fetch has resolved.
	Initialized bool

	State State
}

// SignUpParams carries the sign-up form fields.
type SignUpParams struct {
	Email    string
	Password string
	Name     string
	Company  string
}

// SignUpResult reports the outcome of SignUp.
type SignUpResult struct {
	// Session is nil when verification is pending.
	Session *Session
	User    *UserIdentity

	// PendingVerification is true when the provider created the account but
	// requires email confirmation before a session exists. The synchronizer has
	// already notified the user and scheduled the delayed login redirect.
	PendingVerification bool
}
