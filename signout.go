package authsync

import (
	"context"

	"go.uber.org/zap"
)

// SignOutFailedNotice is surfaced when the provider rejects a sign-out. The
// local state is left for the subscription to correct.
const SignOutFailedNotice = "Sign out could not be completed. Please try again."

// SignOut performs the remote sign-out and audits it best-effort. It always
// completes from the caller's perspective: provider errors are logged and
// surfaced through the notifier, never returned. The UNAUTHENTICATED
// transition and its redirect are driven by the resulting change event.
//
// The subject identity is captured before the remote call because the local
// state is cleared as part of the operation and would otherwise be unavailable
// for the audit entry.
func (s *Synchronizer) SignOut(ctx context.Context) {
	if s == nil || s.store == nil {
		return
	}

	subjectID := s.currentSubject()

	if err := s.store.SignOut(ctx); err != nil {
		s.metricInc(MetricSignOutFailure)
		s.logger.Warn("sign out failed", zap.Error(err), zap.String("subject_id", subjectID))
		s.notify(SignOutFailedNotice)
		return
	}

	s.metricInc(MetricSignOut)
	s.emitAudit(ctx, ActionSignOut, subjectID, "", nil, nil)
}

func (s *Synchronizer) currentSubject() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.user != nil && s.user.ID != "" {
		return s.user.ID
	}
	if s.session != nil {
		return s.session.SubjectID
	}
	return ""
}
