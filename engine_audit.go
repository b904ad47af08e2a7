package tokenAuth

import (
	"context"
	"errors"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventLoginRateLimited     = "login_rate_limited"
	auditEventReissueSuccess       = "reissue_success"
	auditEventReissueFailure       = "reissue_failure"
	auditEventRefreshReuseDetected = "refresh_reuse_detected"
	auditEventLogout               = "logout"
	auditEventRegister             = "register"
	auditEventRevokedPresented     = "revoked_token_presented"
)

// AuditErrorCode is the stable error classification attached to audit events.
type AuditErrorCode string

const (
	auditErrUnauthenticated AuditErrorCode = "unauthenticated"
	auditErrRateLimited     AuditErrorCode = "rate_limited"
	auditErrInvalidToken    AuditErrorCode = "invalid_token"
	auditErrSessionExpired  AuditErrorCode = "session_expired"
	auditErrRefreshReuse    AuditErrorCode = "refresh_reuse"
	auditErrRevoked         AuditErrorCode = "revoked"
	auditErrDuplicate       AuditErrorCode = "duplicate"
	auditErrInvalidRequest  AuditErrorCode = "invalid_request"
	auditErrUnavailable     AuditErrorCode = "backend_unavailable"
	auditErrInternal        AuditErrorCode = "internal_error"
)

func auditErrorCode(err error) AuditErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTokenReuseDetected):
		return auditErrRefreshReuse
	case errors.Is(err, ErrUnauthenticated):
		return auditErrUnauthenticated
	case errors.Is(err, ErrLoginRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrMissingClaim):
		return auditErrInvalidToken
	case errors.Is(err, ErrSessionExpired):
		return auditErrSessionExpired
	case errors.Is(err, ErrTokenRevoked):
		return auditErrRevoked
	case errors.Is(err, ErrAccountExists):
		return auditErrDuplicate
	case errors.Is(err, ErrInvalidRequest):
		return auditErrInvalidRequest
	case errors.Is(err, ErrRedisUnavailable), errors.Is(err, ErrSessionWriteFailed):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}

func auditSeverity(eventType string, success bool) AuditSeverity {
	switch {
	case eventType == auditEventRefreshReuseDetected, eventType == auditEventRevokedPresented:
		return AuditCritical
	case !success:
		return AuditWarning
	default:
		return AuditInfo
	}
}

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	memberID int64,
	email string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Severity:  auditSeverity(eventType, success),
		MemberID:  memberID,
		Email:     email,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}
