package middleware

import (
	"context"
	"net/http"

	"github.com/mfackner/authsync"
)

type identityContextKey struct{}

// IdentityFromContext returns the identity injected by Guard, if any.
func IdentityFromContext(ctx context.Context) (*authsync.UserIdentity, bool) {
	user, ok := ctx.Value(identityContextKey{}).(*authsync.UserIdentity)
	return user, ok
}

// SnapshotSource is the slice of the synchronizer the guard needs.
type SnapshotSource interface {
	Snapshot() authsync.Snapshot
}

// Guard protects a route behind the synchronizer's auth state. While the
// snapshot is still loading it answers 503 with Retry-After rather than
// bouncing users whose session just hasn't resolved yet; once resolved,
// unauthenticated requests are redirected to the login route and
// authenticated ones proceed with the identity in the request context.
func Guard(source SnapshotSource, loginRoute authsync.Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if source == nil {
				http.Error(w, "service unavailable", http.StatusServiceUnavailable)
				return
			}

			snap := source.Snapshot()
			if !snap.Initialized {
				w.Header().Set("Retry-After", "1")
				http.Error(w, "auth state not ready", http.StatusServiceUnavailable)
				return
			}
			if snap.State != authsync.StateAuthenticated {
				http.Redirect(w, r, string(loginRoute), http.StatusFound)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, snap.User)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
