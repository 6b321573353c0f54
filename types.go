package shipauth

import (
	"context"
	"time"
)

// Role is the enumerated authorization level carried by every account and
// embedded into access-token claims.
type Role string

const (
	// RoleAdmin is an exported constant or variable used by the authentication engine.
	RoleAdmin Role = "admin"
	// RoleUser is an exported constant or variable used by the authentication engine.
	RoleUser Role = "user"
	// RoleViewer is an exported constant or variable used by the authentication engine.
	RoleViewer Role = "viewer"
)

// Valid reports whether the role is one of the enumerated values.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser, RoleViewer:
		return true
	}
	return false
}

// ParseRole describes the parserole operation and its observable behavior.
//
// ParseRole may return an error when input validation, dependency calls, or security checks fail.
// ParseRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrRoleInvalid
	}
	return r, nil
}

// TrustedDevice is one entry of a user's trusted-device set. A device whose
// ExpiresAt is in the past is inert: it never bypasses 2FA and is purged on
// the next trust mutation.
type TrustedDevice struct {
	DeviceID  string    `json:"device_id"`
	Label     string    `json:"label,omitempty"`
	LastUsed  time.Time `json:"last_used"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the entry is past its trust window at now.
func (d TrustedDevice) Expired(now time.Time) bool {
	return !d.ExpiresAt.After(now)
}

// User is the full account record exchanged with the [UserStore]. The
// password hash, 2FA secret, and backup-code hashes are security state and
// are never copied into [Profile] values returned to callers.
type User struct {
	ID               string          `json:"id"`
	Email            string          `json:"email"`
	PasswordHash     string          `json:"password_hash"`
	Name             string          `json:"name,omitempty"`
	Role             Role            `json:"role"`
	SuperAdmin       bool            `json:"super_admin,omitempty"`
	Active           bool            `json:"active"`
	TwoFactorEnabled bool            `json:"two_factor_enabled"`
	TwoFactorSecret  string          `json:"two_factor_secret,omitempty"`
	BackupCodeHashes []string        `json:"backup_code_hashes,omitempty"`
	TrustedDevices   []TrustedDevice `json:"trusted_devices,omitempty"`
	LastLogin        time.Time       `json:"last_login,omitzero"`
	CreatedAt        time.Time       `json:"created_at,omitzero"`
}

// UserStore is the credential-store contract callers must implement to
// integrate shipauth with their persistence layer. FindByEmail and Exists
// receive the already-lowercased identity key. Save is a full-record
// upsert; the engine batches its mutations so each operation issues at
// most one Save.
//
// Lookups for unknown records must return [ErrUserNotFound]; any transport
// or availability failure should be returned as-is and is surfaced by the
// engine as [ErrStoreUnavailable].
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id string) (*User, error)
	Save(ctx context.Context, user *User) error
	Exists(ctx context.Context, email string) (bool, error)
}

// DeviceUpserter is an optional [UserStore] upgrade. A store that can
// purge expired entries and insert-or-refresh one device in a single
// atomic operation closes the concurrent-login lost-update window that the
// plain read-modify-write path accepts.
type DeviceUpserter interface {
	UpsertTrustedDevice(ctx context.Context, userID string, device TrustedDevice, now time.Time) error
}

// UserDeleter is an optional [UserStore] upgrade enabling hard deletion.
// Stores without it limit DeleteUser to the soft-disable path.
type UserDeleter interface {
	Delete(ctx context.Context, userID string) error
}

// Profile is the caller-facing projection of a [User]. It carries no
// credential or 2FA material.
type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	Name             string    `json:"name,omitempty"`
	Role             Role      `json:"role"`
	TwoFactorEnabled bool      `json:"two_factor_enabled"`
	LastLogin        time.Time `json:"last_login,omitzero"`
}

// RegisterRequest is the input for [Engine.Register]. Role defaults to
// [Config.Account.DefaultRole] when empty.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     Role
}

// RegisterResult is returned by [Engine.Register]. Tokens are issued
// immediately; a freshly registered account has no 2FA to satisfy.
type RegisterResult struct {
	User         Profile
	AccessToken  string
	RefreshToken string
}

// LoginRequest is the input for [Engine.Login]. TwoFactorCode,
// IsBackupCode, DeviceID, and TrustDevice only matter for accounts with
// 2FA enabled.
type LoginRequest struct {
	Email         string
	Password      string
	TwoFactorCode string
	IsBackupCode  bool
	DeviceID      string
	TrustDevice   bool
}

// LoginResult is returned by [Engine.Login]. When TwoFactorRequired is
// set, the login is a partial success: no tokens are issued, UserID is the
// only populated identity field, and the caller must re-submit the same
// credentials with a 2FA code.
type LoginResult struct {
	AccessToken       string
	RefreshToken      string
	TwoFactorRequired bool
	UserID            string
	User              *Profile
}

// RefreshResult is returned by [Engine.Refresh]. Both tokens are newly
// minted; the presented refresh token stays valid until its natural expiry
// because no revocation state exists.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// ProfileUpdate carries the self-service mutable fields. Nil pointers
// leave the field untouched. Role, Active, and SuperAdmin are deliberately
// absent: those move only through the administrative paths.
type ProfileUpdate struct {
	Name  *string
	Email *string
}

// TwoFactorSetup holds the enrollment material returned by
// [Engine.GenerateTwoFactorSetup]. The secret is shown to the user for
// manual entry; QRImage is the same otpauth URI rendered as a PNG.
type TwoFactorSetup struct {
	Secret  string
	URI     string
	QRImage []byte
}

// AuthContext is the authenticated request identity produced by
// [Engine.Authenticate]. Role comes from the token claims, so a role
// change becomes visible only after the next token refresh; existence and
// the active flag are checked live against the store.
type AuthContext struct {
	UserID string
	Email  string
	Role   Role
}
