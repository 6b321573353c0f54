package flows

import "context"

// Service is the centralized flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Login.FindByEmail != nil
}

func (s Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	return RunLogin(ctx, req, s.deps.Login)
}

func (s Service) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	return RunRefresh(ctx, refreshToken, s.deps.Refresh)
}

func (s Service) Authenticate(ctx context.Context, token string) (*AuthRecord, error) {
	return RunAuthenticate(ctx, token, s.deps.Validate)
}

func (s Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	return RunRegister(ctx, req, s.deps.Account)
}

func (s Service) GetProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	return RunGetProfile(ctx, userID, s.deps.Account)
}

func (s Service) UpdateProfile(ctx context.Context, userID string, update ProfileUpdateRecord) (*ProfileRecord, error) {
	return RunUpdateProfile(ctx, userID, update, s.deps.Account)
}

func (s Service) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	return RunChangePassword(ctx, userID, currentPassword, newPassword, s.deps.Account)
}

func (s Service) SetUserActive(ctx context.Context, actorID, targetID string, active bool) error {
	return RunSetUserActive(ctx, actorID, targetID, active, s.deps.Account)
}

func (s Service) UpdateUserRole(ctx context.Context, actorID, targetID, role string) error {
	return RunUpdateUserRole(ctx, actorID, targetID, role, s.deps.Account)
}

func (s Service) AdminSetPassword(ctx context.Context, actorID, targetID, newPassword string) error {
	return RunAdminSetPassword(ctx, actorID, targetID, newPassword, s.deps.Account)
}

func (s Service) DeleteUser(ctx context.Context, actorID, targetID string) error {
	return RunDeleteUser(ctx, actorID, targetID, s.deps.Account)
}

func (s Service) GenerateTwoFactorSetup(ctx context.Context, userID string) (*TwoFactorSetupRecord, error) {
	return RunGenerateTwoFactorSetup(ctx, userID, s.deps.TwoFactor)
}

func (s Service) EnableTwoFactor(ctx context.Context, userID, code string) ([]string, error) {
	return RunEnableTwoFactor(ctx, userID, code, s.deps.TwoFactor)
}

func (s Service) DisableTwoFactor(ctx context.Context, userID, currentPassword string) error {
	return RunDisableTwoFactor(ctx, userID, currentPassword, s.deps.TwoFactor)
}

func (s Service) VerifyTwoFactorCode(ctx context.Context, userID, code string, isBackupCode bool) bool {
	return RunVerifyTwoFactorCode(ctx, userID, code, isBackupCode, s.deps.TwoFactor)
}

func (s Service) ListTrustedDevices(ctx context.Context, userID string) ([]DeviceRecord, error) {
	return RunListTrustedDevices(ctx, userID, s.deps.Devices)
}

func (s Service) RevokeTrustedDevice(ctx context.Context, userID, deviceID string) error {
	return RunRevokeTrustedDevice(ctx, userID, deviceID, s.deps.Devices)
}
