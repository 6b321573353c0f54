package shipauth

import (
	"context"
	"errors"
	"time"

	"github.com/harborline/shipauth/internal"
	"github.com/harborline/shipauth/internal/audit"
	"github.com/harborline/shipauth/internal/flows"
	"github.com/harborline/shipauth/jwt"
	"github.com/harborline/shipauth/password"
)

// Builder defines a public type used by shipauth APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config    Config
	store     UserStore
	auditSink AuditSink

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cfg
	return b
}

// WithStore describes the withstore operation and its observable behavior.
//
// WithStore may return an error when input validation, dependency calls, or security checks fail.
// WithStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithStore(store UserStore) *Builder {
	b.store = store
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.store == nil {
		return nil, errors.New("user store required")
	}

	cfg := b.config
	applyConfigDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	engine := &Engine{
		config: cfg,
		store:  b.store,
	}

	// Optional store upgrades are detected once at build time.
	if du, ok := b.store.(DeviceUpserter); ok {
		engine.deviceUpserter = du
	}
	if ud, ok := b.store.(UserDeleter); ok {
		engine.userDeleter = ud
	}

	if cfg.Audit.Enabled {
		engine.audit = audit.NewDispatcher(b.auditSink, audit.Options{
			Buffer:     cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		})
	}
	engine.metrics = NewMetrics(cfg.Metrics)
	engine.totp = newTOTPManager(cfg.TOTP)
	engine.policy = password.NewPolicy(cfg.Password.MinLength)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.passwordHash = ph

	jm, err := jwt.NewManager(jwt.Config{
		AccessSecret:  cfg.Token.AccessSecret,
		RefreshSecret: cfg.Token.RefreshSecret,
		AccessTTL:     cfg.Token.AccessTTL,
		RefreshTTL:    cfg.Token.RefreshTTL,
		Issuer:        cfg.Token.Issuer,
		Leeway:        cfg.Token.Leeway,
	})
	if err != nil {
		engine.Close()
		return nil, err
	}
	engine.jwtManager = jm

	engine.flows = flows.New(buildFlowDeps(engine))

	b.built = true

	return engine, nil
}

// buildFlowDeps wires the constructed engine resources into every flow
// dependency set. Closures adapt between the public store model and the
// flow-local records.
func buildFlowDeps(e *Engine) flows.Deps {
	findByEmail := func(ctx context.Context, email string) (*flows.UserRecord, error) {
		user, err := e.store.FindByEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		return userToRecord(user), nil
	}
	findByID := func(ctx context.Context, id string) (*flows.UserRecord, error) {
		user, err := e.store.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		return userToRecord(user), nil
	}
	saveUser := func(ctx context.Context, rec *flows.UserRecord) error {
		return e.store.Save(ctx, recordToUser(rec))
	}
	existsEmail := func(ctx context.Context, email string) (bool, error) {
		return e.store.Exists(ctx, email)
	}
	verifyPassword := func(plain, hash string) (bool, error) {
		return e.passwordHash.Verify(plain, hash)
	}
	verifyTOTP := func(secret, code string, now time.Time) (bool, error) {
		return e.totp.VerifyCode(secret, code, now)
	}
	issueAccess := func(uid, email, role string) (string, error) {
		return e.jwtManager.CreateAccess(uid, email, role)
	}
	issueRefresh := func(uid string) (string, error) {
		return e.jwtManager.CreateRefresh(uid)
	}
	metricInc := func(id int) {
		e.metricInc(MetricID(id))
	}
	emitAudit := e.emitAudit

	var upsertDevice func(context.Context, string, flows.DeviceRecord) error
	if e.deviceUpserter != nil {
		upsertDevice = func(ctx context.Context, userID string, d flows.DeviceRecord) error {
			return e.deviceUpserter.UpsertTrustedDevice(ctx, userID, TrustedDevice{
				DeviceID:  d.DeviceID,
				Label:     d.Label,
				LastUsed:  d.LastUsed,
				ExpiresAt: d.ExpiresAt,
			}, d.LastUsed)
		}
	}

	deps := flows.Deps{
		Login: flows.LoginDeps{
			DeviceTrustTTL:      e.config.DeviceTrust.TTL,
			UserAgent:           userAgentFromContext,
			FindByEmail:         findByEmail,
			SaveUser:            saveUser,
			IsNotFound:          isNotFound,
			UpsertTrustedDevice: upsertDevice,
			DeviceLabel:         internal.DeviceLabel,
			VerifyPassword:      verifyPassword,
			VerifyTOTPCode:      verifyTOTP,
			HashBackupCode:      internal.HashBackupCode,
			IssueAccessToken:    issueAccess,
			IssueRefreshToken:   issueRefresh,
			MetricInc:           metricInc,
			EmitAudit:           emitAudit,
			Metrics: flows.LoginMetrics{
				LoginSuccess:      int(MetricLoginSuccess),
				LoginFailure:      int(MetricLoginFailure),
				TwoFactorRequired: int(MetricTwoFactorRequired),
				TwoFactorSuccess:  int(MetricTwoFactorSuccess),
				TwoFactorFailure:  int(MetricTwoFactorFailure),
				BackupCodeUsed:    int(MetricBackupCodeUsed),
				DeviceTrusted:     int(MetricDeviceTrusted),
			},
			Events: flows.LoginEvents{
				LoginSuccess:      auditEventLoginSuccess,
				LoginFailure:      auditEventLoginFailure,
				TwoFactorRequired: auditEventTwoFactorRequired,
				TwoFactorSuccess:  auditEventTwoFactorSuccess,
				TwoFactorFailure:  auditEventTwoFactorFailure,
				DeviceTrusted:     auditEventDeviceTrusted,
			},
			Errors: flows.LoginErrors{
				EngineNotReady:       ErrEngineNotReady,
				InvalidCredentials:   ErrInvalidCredentials,
				AccountDisabled:      ErrAccountDisabled,
				TwoFactorCodeInvalid: ErrTwoFactorCodeInvalid,
				StoreUnavailable:     ErrStoreUnavailable,
			},
		},
		Refresh: flows.RefreshDeps{
			ParseRefresh: func(token string) (string, error) {
				claims, err := e.jwtManager.ParseRefresh(token)
				if err != nil {
					return "", err
				}
				return claims.UID, nil
			},
			FindByID:          findByID,
			IsNotFound:        isNotFound,
			IssueAccessToken:  issueAccess,
			IssueRefreshToken: issueRefresh,
			MetricInc:         metricInc,
			EmitAudit:         emitAudit,
			Metrics: flows.RefreshMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
			},
			Events: flows.RefreshEvents{
				RefreshSuccess: auditEventRefreshSuccess,
				RefreshFailure: auditEventRefreshInvalid,
			},
			Errors: flows.RefreshErrors{
				EngineNotReady:   ErrEngineNotReady,
				TokenInvalid:     ErrTokenInvalid,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
		Validate: flows.ValidateDeps{
			ParseAccess: func(token string) (*flows.AccessClaimsRecord, error) {
				claims, err := e.jwtManager.ParseAccess(token)
				if err != nil {
					return nil, err
				}
				return &flows.AccessClaimsRecord{
					UID:   claims.UID,
					Email: claims.Email,
					Role:  claims.Role,
				}, nil
			},
			FindByID:   findByID,
			IsNotFound: isNotFound,
			MetricInc:  metricInc,
			Metrics: flows.ValidateMetrics{
				ValidateSuccess: int(MetricValidateSuccess),
				ValidateFailure: int(MetricValidateFailure),
			},
			Errors: flows.ValidateErrors{
				EngineNotReady:   ErrEngineNotReady,
				Unauthenticated:  ErrUnauthenticated,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
		TwoFactor: flows.TwoFactorDeps{
			BackupCodeCount:  e.config.TOTP.BackupCodeCount,
			BackupCodeLength: e.config.TOTP.BackupCodeLength,
			FindByID:         findByID,
			SaveUser:         saveUser,
			IsNotFound:       isNotFound,
			GenerateSecret:   e.totp.GenerateSecret,
			ProvisionURI:     e.totp.ProvisionURI,
			QRImage:          e.totp.QRImage,
			VerifyTOTPCode:   verifyTOTP,
			VerifyPassword:   verifyPassword,
			NewBackupCode:    internal.NewBackupCode,
			HashBackupCode:   internal.HashBackupCode,
			MetricInc:        metricInc,
			EmitAudit:        emitAudit,
			Metrics: flows.TwoFactorMetrics{
				TwoFactorEnabled:  int(MetricTwoFactorEnabled),
				TwoFactorDisabled: int(MetricTwoFactorDisabled),
				TwoFactorFailure:  int(MetricTwoFactorFailure),
				BackupCodeUsed:    int(MetricBackupCodeUsed),
				BackupCodeFailed:  int(MetricBackupCodeFailed),
			},
			Events: flows.TwoFactorEvents{
				SetupRequested:    auditEventTwoFactorSetup,
				TwoFactorEnabled:  auditEventTwoFactorEnabled,
				TwoFactorDisabled: auditEventTwoFactorDisabled,
				BackupCodeUsed:    auditEventBackupCodeUsed,
			},
			Errors: flows.TwoFactorErrors{
				EngineNotReady:       ErrEngineNotReady,
				UserNotFound:         ErrUserNotFound,
				AlreadyEnabled:       ErrTwoFactorAlreadyEnabled,
				NoPendingSecret:      ErrNoPendingSecret,
				TwoFactorCodeInvalid: ErrTwoFactorCodeInvalid,
				InvalidPassword:      ErrInvalidPassword,
				StoreUnavailable:     ErrStoreUnavailable,
				TwoFactorUnavailable: ErrTwoFactorUnavailable,
			},
		},
		Account: flows.AccountDeps{
			DefaultRole: string(e.config.Account.DefaultRole),
			FindByEmail: findByEmail,
			FindByID:    findByID,
			SaveUser:    saveUser,
			ExistsEmail: existsEmail,
			DeleteUser:  e.deleteUserFunc(),
			IsNotFound:  isNotFound,
			NewUserID:   internal.NewUserID,
			HashPassword: func(plain string) (string, error) {
				return e.passwordHash.Hash(plain)
			},
			VerifyPassword: verifyPassword,
			ValidRole: func(role string) bool {
				return Role(role).Valid()
			},
			IssueAccessToken:  issueAccess,
			IssueRefreshToken: issueRefresh,
			MetricInc:         metricInc,
			EmitAudit:         emitAudit,
			Metrics: flows.AccountMetrics{
				RegisterSuccess:          int(MetricRegisterSuccess),
				RegisterDuplicate:        int(MetricRegisterDuplicate),
				PasswordChangeSuccess:    int(MetricPasswordChangeSuccess),
				PasswordChangeInvalidOld: int(MetricPasswordChangeInvalidOld),
			},
			Events: flows.AccountEvents{
				Registered:      auditEventRegisterSuccess,
				ProfileUpdated:  auditEventProfileUpdated,
				PasswordChanged: auditEventPasswordChanged,
				PasswordSet:     auditEventPasswordSetByAdmin,
				ActiveChanged:   auditEventAccountActiveChanged,
				RoleChanged:     auditEventAccountRoleChanged,
				UserDeleted:     auditEventAccountDeleted,
			},
			Errors: flows.AccountErrors{
				EngineNotReady:      ErrEngineNotReady,
				EmailTaken:          ErrEmailTaken,
				UserNotFound:        ErrUserNotFound,
				InvalidPassword:     ErrInvalidPassword,
				RoleInvalid:         ErrRoleInvalid,
				SelfModification:    ErrSelfModification,
				SuperAdminProtected: ErrSuperAdminProtected,
				StoreUnavailable:    ErrStoreUnavailable,
			},
		},
		Devices: flows.DeviceDeps{
			FindByID:   findByID,
			SaveUser:   saveUser,
			IsNotFound: isNotFound,
			MetricInc:  metricInc,
			EmitAudit:  emitAudit,
			Metrics: flows.DeviceMetrics{
				DeviceRevoked: int(MetricDeviceRevoked),
			},
			Events: flows.DeviceEvents{
				DeviceRevoked: auditEventDeviceRevoked,
			},
			Errors: flows.DeviceErrors{
				EngineNotReady:   ErrEngineNotReady,
				UserNotFound:     ErrUserNotFound,
				DeviceNotFound:   ErrDeviceNotFound,
				StoreUnavailable: ErrStoreUnavailable,
			},
		},
	}

	return deps
}

// deleteUserFunc resolves the hard-delete path. Stores without the
// UserDeleter upgrade fall back to a soft disable of the record.
func (e *Engine) deleteUserFunc() func(context.Context, string) error {
	if e.userDeleter != nil {
		return e.userDeleter.Delete
	}
	return func(ctx context.Context, userID string) error {
		user, err := e.store.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Active = false
		return e.store.Save(ctx, user)
	}
}
