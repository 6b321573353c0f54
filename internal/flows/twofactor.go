package flows

import (
	"context"
	"time"
)

// TwoFactorSetupRecord is the flow-local enrollment material.
type TwoFactorSetupRecord struct {
	Secret  string
	URI     string
	QRImage []byte
}

// TwoFactorMetrics carries metric IDs needed by the two-factor flows.
type TwoFactorMetrics struct {
	TwoFactorEnabled  int
	TwoFactorDisabled int
	TwoFactorFailure  int
	BackupCodeUsed    int
	BackupCodeFailed  int
}

// TwoFactorEvents carries audit event names used by the two-factor flows.
type TwoFactorEvents struct {
	SetupRequested    string
	TwoFactorEnabled  string
	TwoFactorDisabled string
	BackupCodeUsed    string
}

// TwoFactorErrors carries host-level sentinel errors used by the two-factor flows.
type TwoFactorErrors struct {
	EngineNotReady       error
	UserNotFound         error
	AlreadyEnabled       error
	NoPendingSecret      error
	TwoFactorCodeInvalid error
	InvalidPassword      error
	StoreUnavailable     error
	TwoFactorUnavailable error
}

// TwoFactorDeps captures enrollment and verification dependencies.
type TwoFactorDeps struct {
	BackupCodeCount  int
	BackupCodeLength int

	Now func() time.Time

	FindByID   func(context.Context, string) (*UserRecord, error)
	SaveUser   func(context.Context, *UserRecord) error
	IsNotFound func(error) bool

	GenerateSecret func() (string, error)
	ProvisionURI   func(secret, account string) string
	QRImage        func(uri string) ([]byte, error)
	VerifyTOTPCode func(secret, code string, now time.Time) (bool, error)
	VerifyPassword func(plain, hash string) (bool, error)
	NewBackupCode  func(length int) (string, error)
	HashBackupCode func(string) string

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics TwoFactorMetrics
	Events  TwoFactorEvents
	Errors  TwoFactorErrors
}

func normalizeTwoFactorDeps(deps *TwoFactorDeps) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
}

// RunGenerateTwoFactorSetup starts (or restarts) enrollment. The secret is
// persisted immediately with the enabled flag still false, which keeps a
// half-enrolled account inert for login purposes. Re-enrollment while a
// pending secret exists overwrites it.
func RunGenerateTwoFactorSetup(ctx context.Context, userID string, deps TwoFactorDeps) (*TwoFactorSetupRecord, error) {
	normalizeTwoFactorDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil ||
		deps.GenerateSecret == nil || deps.ProvisionURI == nil || deps.QRImage == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return nil, deps.Errors.UserNotFound
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, deps.Errors.StoreUnavailable
	}
	if user.TwoFactorEnabled {
		return nil, deps.Errors.AlreadyEnabled
	}

	secret, err := deps.GenerateSecret()
	if err != nil {
		return nil, deps.Errors.TwoFactorUnavailable
	}

	user.TwoFactorSecret = secret
	if err := deps.SaveUser(ctx, user); err != nil {
		return nil, deps.Errors.StoreUnavailable
	}

	uri := deps.ProvisionURI(secret, user.Email)
	img, err := deps.QRImage(uri)
	if err != nil {
		return nil, deps.Errors.TwoFactorUnavailable
	}

	deps.EmitAudit(ctx, deps.Events.SetupRequested, true, user.ID, nil, nil)
	return &TwoFactorSetupRecord{
		Secret:  secret,
		URI:     uri,
		QRImage: img,
	}, nil
}

// RunEnableTwoFactor completes enrollment: it verifies the first code
// against the pending secret, generates the one-time backup codes, and
// flips the enabled flag — all persisted as one state transition. The
// plaintext codes are returned exactly once and cannot be retrieved again.
func RunEnableTwoFactor(ctx context.Context, userID, code string, deps TwoFactorDeps) ([]string, error) {
	normalizeTwoFactorDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil ||
		deps.VerifyTOTPCode == nil || deps.NewBackupCode == nil || deps.HashBackupCode == nil {
		return nil, deps.Errors.EngineNotReady
	}
	if userID == "" {
		return nil, deps.Errors.UserNotFound
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, deps.Errors.StoreUnavailable
	}
	if user.TwoFactorEnabled {
		return nil, deps.Errors.AlreadyEnabled
	}
	if user.TwoFactorSecret == "" {
		return nil, deps.Errors.NoPendingSecret
	}

	ok, err := deps.VerifyTOTPCode(user.TwoFactorSecret, code, deps.Now())
	if err != nil {
		return nil, deps.Errors.TwoFactorUnavailable
	}
	if !ok {
		deps.MetricInc(deps.Metrics.TwoFactorFailure)
		return nil, deps.Errors.TwoFactorCodeInvalid
	}

	count := deps.BackupCodeCount
	if count <= 0 {
		count = 10
	}
	codes := make([]string, 0, count)
	hashes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		c, err := deps.NewBackupCode(deps.BackupCodeLength)
		if err != nil {
			return nil, deps.Errors.TwoFactorUnavailable
		}
		codes = append(codes, c)
		hashes = append(hashes, deps.HashBackupCode(c))
	}

	user.BackupCodeHashes = hashes
	user.TwoFactorEnabled = true
	if err := deps.SaveUser(ctx, user); err != nil {
		return nil, deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.TwoFactorEnabled)
	deps.EmitAudit(ctx, deps.Events.TwoFactorEnabled, true, user.ID, nil, nil)
	return codes, nil
}

// RunDisableTwoFactor tears enrollment down after re-verifying the
// account password. Secret, backup-code hashes, and the enabled flag are
// cleared atomically as a single state transition.
func RunDisableTwoFactor(ctx context.Context, userID, currentPassword string, deps TwoFactorDeps) error {
	normalizeTwoFactorDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil || deps.VerifyPassword == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" {
		return deps.Errors.UserNotFound
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		if deps.IsNotFound(err) {
			return deps.Errors.UserNotFound
		}
		return deps.Errors.StoreUnavailable
	}

	ok, err := deps.VerifyPassword(currentPassword, user.PasswordHash)
	if err != nil || !ok {
		return deps.Errors.InvalidPassword
	}

	user.TwoFactorSecret = ""
	user.BackupCodeHashes = nil
	user.TwoFactorEnabled = false
	if err := deps.SaveUser(ctx, user); err != nil {
		return deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.TwoFactorDisabled)
	deps.EmitAudit(ctx, deps.Events.TwoFactorDisabled, true, user.ID, nil, nil)
	return nil
}

// RunVerifyTwoFactorCode checks a TOTP or backup code for an enabled
// account. It never returns an error: an unknown user and a disabled
// enrollment both read as a plain false so callers cannot enumerate
// accounts through the verification surface. A matching backup code is
// consumed in the same call.
func RunVerifyTwoFactorCode(ctx context.Context, userID, code string, isBackupCode bool, deps TwoFactorDeps) bool {
	normalizeTwoFactorDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.VerifyTOTPCode == nil || deps.HashBackupCode == nil {
		return false
	}
	if userID == "" || code == "" {
		return false
	}

	user, err := deps.FindByID(ctx, userID)
	if err != nil {
		return false
	}
	if !user.TwoFactorEnabled || user.TwoFactorSecret == "" {
		return false
	}

	if isBackupCode {
		submitted := deps.HashBackupCode(code)
		for i, h := range user.BackupCodeHashes {
			if h == submitted {
				user.BackupCodeHashes = append(user.BackupCodeHashes[:i], user.BackupCodeHashes[i+1:]...)
				if err := deps.SaveUser(ctx, user); err != nil {
					return false
				}
				deps.MetricInc(deps.Metrics.BackupCodeUsed)
				deps.EmitAudit(ctx, deps.Events.BackupCodeUsed, true, user.ID, nil, nil)
				return true
			}
		}
		deps.MetricInc(deps.Metrics.BackupCodeFailed)
		return false
	}

	ok, err := deps.VerifyTOTPCode(user.TwoFactorSecret, code, deps.Now())
	if err != nil || !ok {
		deps.MetricInc(deps.Metrics.TwoFactorFailure)
		return false
	}
	return true
}
