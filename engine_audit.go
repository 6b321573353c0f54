package shipauth

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventLoginSuccess         = "login_success"
	auditEventLoginFailure         = "login_failure"
	auditEventTwoFactorRequired    = "two_factor_required"
	auditEventTwoFactorSuccess     = "two_factor_success"
	auditEventTwoFactorFailure     = "two_factor_failure"
	auditEventTwoFactorSetup       = "two_factor_setup_requested"
	auditEventTwoFactorEnabled     = "two_factor_enabled"
	auditEventTwoFactorDisabled    = "two_factor_disabled"
	auditEventBackupCodeUsed       = "backup_code_used"
	auditEventDeviceTrusted        = "device_trusted"
	auditEventDeviceRevoked        = "device_revoked"
	auditEventRefreshSuccess       = "refresh_success"
	auditEventRefreshInvalid       = "refresh_invalid"
	auditEventRegisterSuccess      = "register_success"
	auditEventRegisterFailure      = "register_failure"
	auditEventProfileUpdated       = "profile_updated"
	auditEventPasswordChanged      = "password_changed"
	auditEventPasswordSetByAdmin   = "password_set_by_admin"
	auditEventAccountActiveChanged = "account_active_changed"
	auditEventAccountRoleChanged   = "account_role_changed"
	auditEventAccountDeleted       = "account_deleted"
)

// AuditErrorCode defines a public type used by shipauth APIs.
//
// AuditErrorCode instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditErrorCode string

const (
	auditErrInvalidCredentials  AuditErrorCode = "invalid_credentials"
	auditErrAccountDisabled     AuditErrorCode = "account_disabled"
	auditErrInvalidToken        AuditErrorCode = "invalid_token"
	auditErrUserNotFound        AuditErrorCode = "user_not_found"
	auditErrTwoFactorInvalid    AuditErrorCode = "two_factor_invalid"
	auditErrInvalidPassword     AuditErrorCode = "invalid_password"
	auditErrPasswordPolicy      AuditErrorCode = "password_policy"
	auditErrDuplicate           AuditErrorCode = "duplicate"
	auditErrRoleInvalid         AuditErrorCode = "role_invalid"
	auditErrForbidden           AuditErrorCode = "forbidden"
	auditErrSelfModification    AuditErrorCode = "self_modification"
	auditErrSuperAdminProtected AuditErrorCode = "super_admin_protected"
	auditErrDeviceNotFound      AuditErrorCode = "device_not_found"
	auditErrUnavailable         AuditErrorCode = "backend_unavailable"
	auditErrInternal            AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
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
		Timestamp: time.Now().UTC(),
		EventType: eventType,
		UserID:    userID,
		IP:        clientIPFromContext(ctx),
		Success:   success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return auditErrInvalidCredentials
	case errors.Is(err, ErrAccountDisabled):
		return auditErrAccountDisabled
	case errors.Is(err, ErrTokenInvalid),
		errors.Is(err, ErrUnauthenticated):
		return auditErrInvalidToken
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrTwoFactorCodeInvalid),
		errors.Is(err, ErrTwoFactorAlreadyEnabled),
		errors.Is(err, ErrNoPendingSecret):
		return auditErrTwoFactorInvalid
	case errors.Is(err, ErrInvalidPassword):
		return auditErrInvalidPassword
	case errors.Is(err, ErrValidation):
		return auditErrPasswordPolicy
	case errors.Is(err, ErrEmailTaken):
		return auditErrDuplicate
	case errors.Is(err, ErrRoleInvalid):
		return auditErrRoleInvalid
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrSelfModification):
		return auditErrSelfModification
	case errors.Is(err, ErrSuperAdminProtected):
		return auditErrSuperAdminProtected
	case errors.Is(err, ErrDeviceNotFound):
		return auditErrDeviceNotFound
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, ErrTwoFactorUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
