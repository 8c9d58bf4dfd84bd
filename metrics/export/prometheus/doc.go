// Package prometheus renders synchronizer metrics in Prometheus text
// exposition format.
//
// [New] accepts an [authsync.Synchronizer] and exposes an [http.Handler] that
// serves every counter and the sign-in latency histogram. Counter names are
// prefixed authsync_*_total.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry — callers mount the Handler.
//   - Mutate synchronizer state.
package prometheus
