package flows

import (
	"context"
	"time"
)

// UserRecord is the flow-local account model shared by login, account,
// two-factor, and device flows. The root engine converts to and from its
// public User type at the boundary.
type UserRecord struct {
	ID               string
	Email            string
	PasswordHash     string
	Name             string
	Role             string
	SuperAdmin       bool
	Active           bool
	TwoFactorEnabled bool
	TwoFactorSecret  string
	BackupCodeHashes []string
	TrustedDevices   []DeviceRecord
	LastLogin        time.Time
	CreatedAt        time.Time
}

// ProfileRecord is the flow-local caller-facing projection of a user.
type ProfileRecord struct {
	ID               string
	Email            string
	Name             string
	Role             string
	TwoFactorEnabled bool
	LastLogin        time.Time
}

func profileOf(user *UserRecord) ProfileRecord {
	return ProfileRecord{
		ID:               user.ID,
		Email:            user.Email,
		Name:             user.Name,
		Role:             user.Role,
		TwoFactorEnabled: user.TwoFactorEnabled,
		LastLogin:        user.LastLogin,
	}
}

// LoginRequest is the flow-local login input shape.
type LoginRequest struct {
	Email         string
	Password      string
	TwoFactorCode string
	IsBackupCode  bool
	DeviceID      string
	TrustDevice   bool
}

// LoginResult is the flow-local login response shape. TwoFactorRequired
// marks the partial outcome: UserID only, no tokens.
type LoginResult struct {
	AccessToken       string
	RefreshToken      string
	TwoFactorRequired bool
	UserID            string
	User              *ProfileRecord
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess      int
	LoginFailure      int
	TwoFactorRequired int
	TwoFactorSuccess  int
	TwoFactorFailure  int
	BackupCodeUsed    int
	DeviceTrusted     int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess      string
	LoginFailure      string
	TwoFactorRequired string
	TwoFactorSuccess  string
	TwoFactorFailure  string
	DeviceTrusted     string
}

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	EngineNotReady       error
	InvalidCredentials   error
	AccountDisabled      error
	TwoFactorCodeInvalid error
	StoreUnavailable     error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	DeviceTrustTTL time.Duration

	Now       func() time.Time
	UserAgent func(context.Context) string

	FindByEmail func(context.Context, string) (*UserRecord, error)
	SaveUser    func(context.Context, *UserRecord) error
	IsNotFound  func(error) bool
	// UpsertTrustedDevice is non-nil when the store offers an atomic
	// purge+upsert; the flow then routes the device mutation through it
	// instead of the batched record save.
	UpsertTrustedDevice func(context.Context, string, DeviceRecord) error
	DeviceLabel         func(userAgent string) string

	VerifyPassword func(plain, hash string) (bool, error)
	VerifyTOTPCode func(secret, code string, now time.Time) (bool, error)
	HashBackupCode func(string) string

	IssueAccessToken  func(uid, email, role string) (string, error)
	IssueRefreshToken func(uid string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics LoginMetrics
	Events  LoginEvents
	Errors  LoginErrors
}

// RunLogin executes the login state machine: credential verification,
// conditional device trust and 2FA, then token issuance. Persistence
// writes are batched into a single save per attempt, except when the
// store's atomic device upsert takes over the device mutation.
func RunLogin(ctx context.Context, req LoginRequest, deps LoginDeps) (*LoginResult, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.UserAgent == nil {
		deps.UserAgent = func(context.Context) string { return "" }
	}
	if deps.DeviceLabel == nil {
		deps.DeviceLabel = func(string) string { return "" }
	}
	if deps.FindByEmail == nil ||
		deps.SaveUser == nil ||
		deps.IsNotFound == nil ||
		deps.VerifyPassword == nil ||
		deps.VerifyTOTPCode == nil ||
		deps.HashBackupCode == nil ||
		deps.IssueAccessToken == nil ||
		deps.IssueRefreshToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := NormalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "missing_credentials",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	user, err := deps.FindByEmail(ctx, email)
	if err != nil {
		if !deps.IsNotFound(err) {
			return nil, deps.Errors.StoreUnavailable
		}
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, "", deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "user_not_found",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}

	ok, err := deps.VerifyPassword(req.Password, user.PasswordHash)
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, deps.Errors.InvalidCredentials, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "password_mismatch",
			}
		})
		return nil, deps.Errors.InvalidCredentials
	}
	req.Password = ""

	if !user.Active {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, user.ID, deps.Errors.AccountDisabled, func() map[string]string {
			return map[string]string{
				"email":  email,
				"reason": "account_disabled",
			}
		})
		return nil, deps.Errors.AccountDisabled
	}

	now := deps.Now()
	var pendingDevice *DeviceRecord

	if user.TwoFactorEnabled && user.TwoFactorSecret != "" {
		trusted := IsTrustedDevice(user.TrustedDevices, req.DeviceID, now)

		switch {
		case trusted:
			// Trusted device: no code needed, slide the trust window.
			pendingDevice = &DeviceRecord{DeviceID: req.DeviceID}
			deps.MetricInc(deps.Metrics.DeviceTrusted)
		case req.TwoFactorCode == "":
			deps.MetricInc(deps.Metrics.TwoFactorRequired)
			deps.EmitAudit(ctx, deps.Events.TwoFactorRequired, true, user.ID, nil, func() map[string]string {
				return map[string]string{
					"email": email,
				}
			})
			return &LoginResult{
				TwoFactorRequired: true,
				UserID:            user.ID,
			}, nil
		default:
			passed := false
			if req.IsBackupCode {
				submitted := deps.HashBackupCode(req.TwoFactorCode)
				for i, h := range user.BackupCodeHashes {
					if h == submitted {
						// Single use: the consumed hash leaves the set in
						// the same batched save as the rest of the login.
						user.BackupCodeHashes = append(user.BackupCodeHashes[:i], user.BackupCodeHashes[i+1:]...)
						passed = true
						deps.MetricInc(deps.Metrics.BackupCodeUsed)
						break
					}
				}
			} else {
				codeOK, verr := deps.VerifyTOTPCode(user.TwoFactorSecret, req.TwoFactorCode, now)
				passed = verr == nil && codeOK
			}

			if !passed {
				deps.MetricInc(deps.Metrics.TwoFactorFailure)
				deps.EmitAudit(ctx, deps.Events.TwoFactorFailure, false, user.ID, deps.Errors.TwoFactorCodeInvalid, func() map[string]string {
					return map[string]string{
						"email":  email,
						"backup": boolString(req.IsBackupCode),
					}
				})
				return nil, deps.Errors.TwoFactorCodeInvalid
			}

			deps.MetricInc(deps.Metrics.TwoFactorSuccess)
			deps.EmitAudit(ctx, deps.Events.TwoFactorSuccess, true, user.ID, nil, nil)

			if req.TrustDevice && req.DeviceID != "" {
				pendingDevice = &DeviceRecord{
					DeviceID: req.DeviceID,
					Label:    deps.DeviceLabel(deps.UserAgent(ctx)),
				}
				deps.MetricInc(deps.Metrics.DeviceTrusted)
			}
		}
	}

	if pendingDevice != nil {
		pendingDevice.LastUsed = now
		pendingDevice.ExpiresAt = now.Add(deps.DeviceTrustTTL)
		if deps.UpsertTrustedDevice == nil {
			user.TrustedDevices = UpsertDevice(user.TrustedDevices, *pendingDevice, now, deps.DeviceTrustTTL)
		}
	}

	user.LastLogin = now
	if err := deps.SaveUser(ctx, user); err != nil {
		return nil, deps.Errors.StoreUnavailable
	}

	// The batched save still carries the device list read at the start of
	// the login, so the atomic upsert must land after it; the other order
	// has the save overwrite the freshly upserted device.
	if pendingDevice != nil {
		if deps.UpsertTrustedDevice != nil {
			if err := deps.UpsertTrustedDevice(ctx, user.ID, *pendingDevice); err != nil {
				return nil, deps.Errors.StoreUnavailable
			}
		}
		deps.EmitAudit(ctx, deps.Events.DeviceTrusted, true, user.ID, nil, func() map[string]string {
			return map[string]string{
				"device_id": pendingDevice.DeviceID,
			}
		})
	}

	access, err := deps.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := deps.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	profile := profileOf(user)
	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, user.ID, nil, func() map[string]string {
		return map[string]string{
			"email": email,
		}
	})

	return &LoginResult{
		AccessToken:  access,
		RefreshToken: refresh,
		UserID:       user.ID,
		User:         &profile,
	}, nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
