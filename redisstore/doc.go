// Package redisstore is a Redis-backed implementation of
// authsync.SessionStore used for development, examples, and tests. Accounts
// are stored as hashes keyed by email with argon2id password hashes, sessions
// live under a TTL, and session-change events fan out over Redis pub/sub so
// Stores sharing a ClientID behave like tabs of one browser.
//
// It is not a production identity provider. In deployments the synchronizer
// is pointed at the hosted provider's SDK instead.
package redisstore
