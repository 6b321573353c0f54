package flows

import (
	"context"
	"strings"
	"time"
)

// NormalizeEmail canonicalizes an address for lookup and storage. Every
// flow that touches an email goes through this so the store only ever
// sees one spelling per account.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest is the flow-local registration input shape. Password
// policy is enforced by the host before this flow runs.
type RegisterRequest struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// RegisterResult is the flow-local registration response shape.
type RegisterResult struct {
	AccessToken  string
	RefreshToken string
	User         ProfileRecord
}

// AccountMetrics carries metric IDs needed by the account flows.
type AccountMetrics struct {
	RegisterSuccess          int
	RegisterDuplicate        int
	PasswordChangeSuccess    int
	PasswordChangeInvalidOld int
}

// AccountEvents carries audit event names used by the account flows.
type AccountEvents struct {
	Registered      string
	ProfileUpdated  string
	PasswordChanged string
	PasswordSet     string
	ActiveChanged   string
	RoleChanged     string
	UserDeleted     string
}

// AccountErrors carries host-level sentinel errors used by the account flows.
type AccountErrors struct {
	EngineNotReady      error
	EmailTaken          error
	UserNotFound        error
	InvalidPassword     error
	RoleInvalid         error
	SelfModification    error
	SuperAdminProtected error
	StoreUnavailable    error
}

// AccountDeps captures everything the account flows need from the host.
type AccountDeps struct {
	DefaultRole string

	Now func() time.Time

	FindByEmail func(context.Context, string) (*UserRecord, error)
	FindByID    func(context.Context, string) (*UserRecord, error)
	SaveUser    func(context.Context, *UserRecord) error
	ExistsEmail func(context.Context, string) (bool, error)
	DeleteUser  func(context.Context, string) error
	IsNotFound  func(error) bool

	NewUserID      func() string
	HashPassword   func(plain string) (string, error)
	VerifyPassword func(plain, hash string) (bool, error)
	ValidRole      func(string) bool

	IssueAccessToken  func(uid, email, role string) (string, error)
	IssueRefreshToken func(uid string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics AccountMetrics
	Events  AccountEvents
	Errors  AccountErrors
}

func normalizeAccountDeps(deps *AccountDeps) {
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

// RunRegister creates a new active account and signs it in. The email is
// normalized before the uniqueness check so case and whitespace variants
// collapse onto one account. Role falls back to the configured default
// when the request leaves it empty.
func RunRegister(ctx context.Context, req RegisterRequest, deps AccountDeps) (*RegisterResult, error) {
	normalizeAccountDeps(&deps)
	if deps.SaveUser == nil || deps.ExistsEmail == nil || deps.NewUserID == nil ||
		deps.HashPassword == nil || deps.IssueAccessToken == nil || deps.IssueRefreshToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email := NormalizeEmail(req.Email)
	role := req.Role
	if role == "" {
		role = deps.DefaultRole
	}
	if deps.ValidRole != nil && !deps.ValidRole(role) {
		return nil, deps.Errors.RoleInvalid
	}

	taken, err := deps.ExistsEmail(ctx, email)
	if err != nil {
		return nil, deps.Errors.StoreUnavailable
	}
	if taken {
		deps.MetricInc(deps.Metrics.RegisterDuplicate)
		deps.EmitAudit(ctx, deps.Events.Registered, false, "", deps.Errors.EmailTaken, func() map[string]string {
			return map[string]string{"email": email}
		})
		return nil, deps.Errors.EmailTaken
	}

	hash, err := deps.HashPassword(req.Password)
	if err != nil {
		return nil, deps.Errors.StoreUnavailable
	}

	now := deps.Now()
	user := &UserRecord{
		ID:           deps.NewUserID(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		Active:       true,
		CreatedAt:    now,
	}
	if err := deps.SaveUser(ctx, user); err != nil {
		return nil, deps.Errors.StoreUnavailable
	}

	access, err := deps.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, deps.Errors.EngineNotReady
	}
	refresh, err := deps.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.Registered, true, user.ID, nil, func() map[string]string {
		return map[string]string{"email": email, "role": role}
	})
	return &RegisterResult{
		AccessToken:  access,
		RefreshToken: refresh,
		User:         profileOf(user),
	}, nil
}

// RunGetProfile returns the caller-facing projection of an account.
func RunGetProfile(ctx context.Context, userID string, deps AccountDeps) (*ProfileRecord, error) {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.IsNotFound == nil {
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
	profile := profileOf(user)
	return &profile, nil
}

// ProfileUpdateRecord is the flow-local partial-update shape. Nil fields
// are left untouched.
type ProfileUpdateRecord struct {
	Name  *string
	Email *string
}

// RunUpdateProfile applies a partial update to name and email. A changed
// email is normalized and re-checked for uniqueness against other
// accounts before the write.
func RunUpdateProfile(ctx context.Context, userID string, update ProfileUpdateRecord, deps AccountDeps) (*ProfileRecord, error) {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.ExistsEmail == nil || deps.IsNotFound == nil {
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

	changed := false
	if update.Name != nil {
		user.Name = strings.TrimSpace(*update.Name)
		changed = true
	}
	if update.Email != nil {
		email := NormalizeEmail(*update.Email)
		if email != user.Email {
			taken, err := deps.ExistsEmail(ctx, email)
			if err != nil {
				return nil, deps.Errors.StoreUnavailable
			}
			if taken {
				return nil, deps.Errors.EmailTaken
			}
			user.Email = email
			changed = true
		}
	}

	if changed {
		if err := deps.SaveUser(ctx, user); err != nil {
			return nil, deps.Errors.StoreUnavailable
		}
		deps.EmitAudit(ctx, deps.Events.ProfileUpdated, true, user.ID, nil, nil)
	}
	profile := profileOf(user)
	return &profile, nil
}

// RunChangePassword rotates a password after re-verifying the current
// one. A wrong current password is reported as InvalidPassword, distinct
// from the unified login failure, since the caller is already
// authenticated here.
func RunChangePassword(ctx context.Context, userID, currentPassword, newPassword string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil ||
		deps.VerifyPassword == nil || deps.HashPassword == nil {
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
		deps.MetricInc(deps.Metrics.PasswordChangeInvalidOld)
		deps.EmitAudit(ctx, deps.Events.PasswordChanged, false, user.ID, deps.Errors.InvalidPassword, nil)
		return deps.Errors.InvalidPassword
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return deps.Errors.StoreUnavailable
	}
	user.PasswordHash = hash
	if err := deps.SaveUser(ctx, user); err != nil {
		return deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.PasswordChangeSuccess)
	deps.EmitAudit(ctx, deps.Events.PasswordChanged, true, user.ID, nil, nil)
	return nil
}

// loadAdminTarget applies the shared admin-mutation guard rails: the
// actor may not target itself, and superAdmin accounts are off limits to
// everyone else.
func loadAdminTarget(ctx context.Context, actorID, targetID string, deps AccountDeps) (*UserRecord, error) {
	if targetID == "" {
		return nil, deps.Errors.UserNotFound
	}
	if actorID != "" && actorID == targetID {
		return nil, deps.Errors.SelfModification
	}

	target, err := deps.FindByID(ctx, targetID)
	if err != nil {
		if deps.IsNotFound(err) {
			return nil, deps.Errors.UserNotFound
		}
		return nil, deps.Errors.StoreUnavailable
	}
	if target.SuperAdmin {
		return nil, deps.Errors.SuperAdminProtected
	}
	return target, nil
}

// RunSetUserActive enables or disables a target account.
func RunSetUserActive(ctx context.Context, actorID, targetID string, active bool, deps AccountDeps) error {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil {
		return deps.Errors.EngineNotReady
	}

	target, err := loadAdminTarget(ctx, actorID, targetID, deps)
	if err != nil {
		return err
	}
	if target.Active == active {
		return nil
	}

	target.Active = active
	if err := deps.SaveUser(ctx, target); err != nil {
		return deps.Errors.StoreUnavailable
	}
	deps.EmitAudit(ctx, deps.Events.ActiveChanged, true, target.ID, nil, func() map[string]string {
		return map[string]string{"actor": actorID, "active": boolString(active)}
	})
	return nil
}

// RunUpdateUserRole assigns a new role to a target account.
func RunUpdateUserRole(ctx context.Context, actorID, targetID, role string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil {
		return deps.Errors.EngineNotReady
	}
	if deps.ValidRole != nil && !deps.ValidRole(role) {
		return deps.Errors.RoleInvalid
	}

	target, err := loadAdminTarget(ctx, actorID, targetID, deps)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}

	target.Role = role
	if err := deps.SaveUser(ctx, target); err != nil {
		return deps.Errors.StoreUnavailable
	}
	deps.EmitAudit(ctx, deps.Events.RoleChanged, true, target.ID, nil, func() map[string]string {
		return map[string]string{"actor": actorID, "role": role}
	})
	return nil
}

// RunAdminSetPassword overwrites a target account's password without
// knowing the current one. A superAdmin account can only be targeted by
// itself, so the self-modification rule inverts here.
func RunAdminSetPassword(ctx context.Context, actorID, targetID, newPassword string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil || deps.HashPassword == nil {
		return deps.Errors.EngineNotReady
	}
	if targetID == "" {
		return deps.Errors.UserNotFound
	}

	target, err := deps.FindByID(ctx, targetID)
	if err != nil {
		if deps.IsNotFound(err) {
			return deps.Errors.UserNotFound
		}
		return deps.Errors.StoreUnavailable
	}
	if target.SuperAdmin && actorID != targetID {
		return deps.Errors.SuperAdminProtected
	}

	hash, err := deps.HashPassword(newPassword)
	if err != nil {
		return deps.Errors.StoreUnavailable
	}
	target.PasswordHash = hash
	if err := deps.SaveUser(ctx, target); err != nil {
		return deps.Errors.StoreUnavailable
	}
	deps.EmitAudit(ctx, deps.Events.PasswordSet, true, target.ID, nil, func() map[string]string {
		return map[string]string{"actor": actorID}
	})
	return nil
}

// RunDeleteUser removes a target account. SuperAdmin accounts cannot be
// deleted, by anyone, ever.
func RunDeleteUser(ctx context.Context, actorID, targetID string, deps AccountDeps) error {
	normalizeAccountDeps(&deps)
	if deps.FindByID == nil || deps.DeleteUser == nil || deps.IsNotFound == nil {
		return deps.Errors.EngineNotReady
	}

	target, err := loadAdminTarget(ctx, actorID, targetID, deps)
	if err != nil {
		return err
	}

	if err := deps.DeleteUser(ctx, target.ID); err != nil {
		if deps.IsNotFound(err) {
			return deps.Errors.UserNotFound
		}
		return deps.Errors.StoreUnavailable
	}
	deps.EmitAudit(ctx, deps.Events.UserDeleted, true, target.ID, nil, func() map[string]string {
		return map[string]string{"actor": actorID}
	})
	return nil
}
