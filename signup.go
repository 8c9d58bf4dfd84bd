package authsync

import (
	"context"
	"time"
)

// CheckEmailNotice is the user-visible message surfaced when the provider
// requires email verification before a session can exist.
const CheckEmailNotice = "Account created. Check your email to verify your address before signing in."

// SignUp validates both email and password, creates the account, and records a
// sign_up audit entry on success.
//
// When the provider returns no session the account is verification-pending:
// the result reports PendingVerification, the notifier surfaces the
// check-your-email notice, and after SignUpConfig.VerificationRedirectDelay
// the synchronizer navigates to the login route. When a session is returned
// immediately the snapshot is merged and the redirect follows the signed_in
// change event, exactly like a sign-in completion.
func (s *Synchronizer) SignUp(ctx context.Context, params SignUpParams) (*SignUpResult, error) {
	if s == nil || s.store == nil {
		return nil, ErrNotStarted
	}

	if err := ValidateEmail(params.Email); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password, s.config.Validation.MinPasswordLength); err != nil {
		return nil, err
	}

	s.beginOperation()
	defer s.endOperation()

	creds, err := s.store.SignUpWithCredentials(ctx, params.Email, params.Password, UserMetadata{
		Name:    params.Name,
		Company: params.Company,
	})
	if err != nil {
		s.metricInc(MetricSignUpFailure)
		return nil, err
	}

	result := &SignUpResult{
		Session: credentialsSession(creds),
	}
	if creds != nil {
		result.User = creds.User
	}

	if result.Session == nil {
		result.PendingVerification = true
		s.metricInc(MetricSignUpPending)
		s.emitAudit(ctx, ActionSignUp, credentialsSubject(creds), params.Email, nil, func() map[string]string {
			return map[string]string{"verification": "pending"}
		})
		s.notify(CheckEmailNotice)
		s.scheduleVerificationRedirect()
		return result, nil
	}

	s.metricInc(MetricSignUpSuccess)
	s.emitAudit(ctx, ActionSignUp, credentialsSubject(creds), params.Email, nil, nil)

	if !s.isClosed() {
		s.apply(attachUser(creds), "", false)
	}

	return result, nil
}

// scheduleVerificationRedirect arms the delayed navigation to the login route.
// The timer checks the closed flag before firing so a torn-down synchronizer
// never navigates a disposed scope.
func (s *Synchronizer) scheduleVerificationRedirect() {
	delay := s.config.SignUp.VerificationRedirectDelay

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.verifyTimer != nil {
		s.verifyTimer.Stop()
	}
	s.verifyTimer = time.AfterFunc(delay, func() {
		if s.isClosed() {
			return
		}
		s.redirect(s.config.Redirect.LoginRoute)
	})
	s.mu.Unlock()
}
