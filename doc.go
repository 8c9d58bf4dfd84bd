// Package authsync reconciles two independently-arriving sources of truth about
// authentication state — a push-style session-change subscription and a one-shot
// initial session fetch — into a single authoritative snapshot, and drives
// navigation side effects off edge-triggered sign-in/sign-out transitions.
//
// The package is designed for embedding hosted identity providers: [Synchronizer]
// methods are safe to call from multiple goroutines after construction through
// [Builder.Build] and a call to [Synchronizer.Start].
//
// # Architecture boundaries
//
// authsync is the public surface. It exposes [Synchronizer], [Builder], [Config],
// the [SessionStore] collaborator interface, and value types (Snapshot, AuditEvent,
// MetricsSnapshot). The bundled Redis-backed provider lives in redisstore/, token
// handling in token/, and password hashing in password/. Dependencies point one
// way: redisstore/ and middleware/ depend on this package, never the reverse.
//
// # What this package must NOT do
//
//   - Assume any relative ordering between the subscription stream and the
//     initial fetch. Both paths apply idempotent snapshots; either may win.
//   - Block or fail a credential operation because an audit write failed. Audit
//     emission is fire-and-forget through a buffered dispatcher.
//   - Navigate from inside SignIn/SignUp/SignOut. Navigation is driven only by
//     the synchronizer's observation of the resulting session-change event, so
//     there is a single source of truth for "are we actually logged in".
//
// # Concurrency contract
//
// All snapshot mutation happens behind one mutex and is always a complete
// replacement of the {session, user} pair; readers never observe a half-applied
// transition. Remote calls are never made while the lock is held.
package authsync
