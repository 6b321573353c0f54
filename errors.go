package shipauth

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is an exported constant or variable used by the authentication engine.
	ErrValidation = errors.New("validation failed")
	// ErrInvalidCredentials is an exported constant or variable used by the authentication engine.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrAccountDisabled is an exported constant or variable used by the authentication engine.
	ErrAccountDisabled = errors.New("account disabled")
	// ErrInvalidPassword is an exported constant or variable used by the authentication engine.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrEmailTaken is an exported constant or variable used by the authentication engine.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUserNotFound is an exported constant or variable used by the authentication engine.
	ErrUserNotFound = errors.New("user not found")
	// ErrRoleInvalid is an exported constant or variable used by the authentication engine.
	ErrRoleInvalid = errors.New("invalid role")
	// ErrTwoFactorAlreadyEnabled is an exported constant or variable used by the authentication engine.
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor authentication already enabled")
	// ErrNoPendingSecret is an exported constant or variable used by the authentication engine.
	ErrNoPendingSecret = errors.New("no pending two-factor secret")
	// ErrTwoFactorCodeInvalid is an exported constant or variable used by the authentication engine.
	ErrTwoFactorCodeInvalid = errors.New("invalid 2FA code")
	// ErrTwoFactorUnavailable is an exported constant or variable used by the authentication engine.
	ErrTwoFactorUnavailable = errors.New("two-factor backend unavailable")
	// ErrTokenInvalid is an exported constant or variable used by the authentication engine.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrUnauthenticated is an exported constant or variable used by the authentication engine.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is an exported constant or variable used by the authentication engine.
	ErrForbidden = errors.New("forbidden")
	// ErrSelfModification is an exported constant or variable used by the authentication engine.
	ErrSelfModification = errors.New("cannot modify own account status, role, or existence")
	// ErrSuperAdminProtected is an exported constant or variable used by the authentication engine.
	ErrSuperAdminProtected = errors.New("super admin account is protected")
	// ErrDeviceNotFound is an exported constant or variable used by the authentication engine.
	ErrDeviceNotFound = errors.New("trusted device not found")
	// ErrStoreUnavailable is an exported constant or variable used by the authentication engine.
	ErrStoreUnavailable = errors.New("credential store unavailable")
	// ErrEngineNotReady is an exported constant or variable used by the authentication engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// PolicyError reports the password-composition rules a candidate password
// violated. It matches [ErrValidation] under errors.Is so callers can map
// it onto their validation taxonomy without inspecting the reasons.
type PolicyError struct {
	Reasons []string
}

// Error describes the error operation and its observable behavior.
//
// Error does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *PolicyError) Error() string {
	if e == nil || len(e.Reasons) == 0 {
		return "password policy violation"
	}
	return fmt.Sprintf("password policy violation: %s", strings.Join(e.Reasons, "; "))
}

// Is reports whether target matches this error class.
func (e *PolicyError) Is(target error) bool {
	return target == ErrValidation
}

// IsValidationError reports whether err is a validation failure, including
// password policy violations.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}
