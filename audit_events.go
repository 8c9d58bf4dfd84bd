package authsync

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// auditReason maps operation errors to stable reason strings so sink consumers
// never have to parse error text.
type auditReason string

const (
	auditReasonInvalidCredentials auditReason = "invalid_credentials"
	auditReasonUserNotFound       auditReason = "user_not_found"
	auditReasonAccountExists      auditReason = "account_exists"
	auditReasonAccountUnverified  auditReason = "account_unverified"
	auditReasonSessionExpired     auditReason = "session_expired"
	auditReasonUnavailable        auditReason = "provider_unavailable"
	auditReasonInternal           auditReason = "internal_error"
)

func (s *Synchronizer) emitAudit(
	ctx context.Context,
	action AuditAction,
	subjectID string,
	email string,
	opErr error,
	metadataBuilder func() map[string]string,
) {
	if s == nil || s.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		SubjectID: subjectID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Metadata:  metadata,
	}
	if opErr != nil {
		event.Error = string(auditErrorReason(opErr))
	}

	s.audit.Emit(ctx, event)
}

func auditErrorReason(err error) auditReason {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditReasonInvalidCredentials
	case errors.Is(err, ErrUserNotFound):
		return auditReasonUserNotFound
	case errors.Is(err, ErrAccountExists):
		return auditReasonAccountExists
	case errors.Is(err, ErrAccountUnverified):
		return auditReasonAccountUnverified
	case errors.Is(err, ErrSessionExpired):
		return auditReasonSessionExpired
	case errors.Is(err, ErrProviderUnavailable):
		return auditReasonUnavailable
	default:
		return auditReasonInternal
	}
}
