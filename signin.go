package authsync

import (
	"context"
	"time"
)

// SignIn validates the email shape, performs the remote credential check, and
// records the outcome in the audit log. Validation failures propagate
// immediately without a remote call or an audit entry. Provider rejections are
// audited as sign_in_failed with the attempted email, then re-raised.
//
// SignIn never navigates: the redirect is driven exclusively by the
// synchronizer's observation of the resulting session-change event, so an
// operation that locally reports success but whose session propagation has not
// been observed yet cannot cause a premature redirect.
func (s *Synchronizer) SignIn(ctx context.Context, email, password string) (*Session, error) {
	if s == nil || s.store == nil {
		return nil, ErrNotStarted
	}

	if err := ValidateEmail(email); err != nil {
		s.metricInc(MetricSignInRejected)
		return nil, err
	}

	s.beginOperation()
	defer s.endOperation()

	start := time.Now()
	creds, err := s.store.SignInWithCredentials(ctx, email, password)
	s.metrics.Observe(MetricSignInLatency, time.Since(start))

	if err != nil {
		s.metricInc(MetricSignInFailure)
		s.emitAudit(ctx, ActionSignInFailed, "", email, err, nil)
		return nil, err
	}

	s.metricInc(MetricSignInSuccess)
	s.emitAudit(ctx, ActionSignIn, credentialsSubject(creds), email, nil, nil)

	// Merge the returned snapshot; the subscription may deliver the same one
	// again and the idempotent application absorbs whichever arrives second.
	// The redirect waits for the signed_in event.
	if creds != nil && !s.isClosed() {
		s.apply(attachUser(creds), "", false)
	}

	return credentialsSession(creds), nil
}

func credentialsSession(c *Credentials) *Session {
	if c == nil {
		return nil
	}
	return c.Session
}

func credentialsSubject(c *Credentials) string {
	if c == nil {
		return ""
	}
	if c.User != nil && c.User.ID != "" {
		return c.User.ID
	}
	if c.Session != nil {
		return c.Session.SubjectID
	}
	return ""
}

// attachUser folds the credential result's user record into the session
// snapshot so a single pointer carries the whole pair.
func attachUser(c *Credentials) *Session {
	if c == nil || c.Session == nil {
		return nil
	}
	if c.Session.User != nil || c.User == nil {
		return c.Session
	}
	session := *c.Session
	session.User = c.User
	return &session
}
