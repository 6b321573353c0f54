package internaldefs

import (
	shipauth "github.com/harborline/shipauth"
)

// CounterDef defines a public type used by shipauth APIs.
//
// CounterDef instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type CounterDef struct {
	ID   shipauth.MetricID
	Name string
	Help string
}

// CounterDefs is an exported constant or variable used by the authentication engine.
var CounterDefs = []CounterDef{
	{ID: shipauth.MetricLoginSuccess, Name: "shipauth_login_success_total", Help: "Successful login attempts."},
	{ID: shipauth.MetricLoginFailure, Name: "shipauth_login_failure_total", Help: "Failed login attempts."},
	{ID: shipauth.MetricTwoFactorRequired, Name: "shipauth_two_factor_required_total", Help: "Login flows halted pending a second factor."},
	{ID: shipauth.MetricTwoFactorSuccess, Name: "shipauth_two_factor_success_total", Help: "Successful second-factor verifications during login."},
	{ID: shipauth.MetricTwoFactorFailure, Name: "shipauth_two_factor_failure_total", Help: "Failed second-factor verifications."},
	{ID: shipauth.MetricTwoFactorEnabled, Name: "shipauth_two_factor_enabled_total", Help: "Completed two-factor enrollments."},
	{ID: shipauth.MetricTwoFactorDisabled, Name: "shipauth_two_factor_disabled_total", Help: "Two-factor teardown operations."},
	{ID: shipauth.MetricBackupCodeUsed, Name: "shipauth_backup_code_used_total", Help: "Successful backup-code authentications."},
	{ID: shipauth.MetricBackupCodeFailed, Name: "shipauth_backup_code_failed_total", Help: "Failed backup-code authentications."},
	{ID: shipauth.MetricDeviceTrusted, Name: "shipauth_device_trusted_total", Help: "Device trust grants and renewals."},
	{ID: shipauth.MetricDeviceRevoked, Name: "shipauth_device_revoked_total", Help: "Trusted-device revocations."},
	{ID: shipauth.MetricRefreshSuccess, Name: "shipauth_refresh_success_total", Help: "Successful token refresh operations."},
	{ID: shipauth.MetricRefreshFailure, Name: "shipauth_refresh_failure_total", Help: "Failed token refresh operations."},
	{ID: shipauth.MetricRegisterSuccess, Name: "shipauth_register_success_total", Help: "Successful account registrations."},
	{ID: shipauth.MetricRegisterDuplicate, Name: "shipauth_register_duplicate_total", Help: "Registrations rejected as duplicate."},
	{ID: shipauth.MetricPasswordChangeSuccess, Name: "shipauth_password_change_success_total", Help: "Successful password changes."},
	{ID: shipauth.MetricPasswordChangeInvalidOld, Name: "shipauth_password_change_invalid_old_total", Help: "Password change attempts with invalid current password."},
	{ID: shipauth.MetricValidateSuccess, Name: "shipauth_validate_success_total", Help: "Access tokens accepted by the authorization gate."},
	{ID: shipauth.MetricValidateFailure, Name: "shipauth_validate_failure_total", Help: "Access tokens rejected by the authorization gate."},
}
