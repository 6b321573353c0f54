package shipauth

import (
	"bytes"
	"errors"
	"time"
)

// Config defines a public type used by shipauth APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Token       TokenConfig
	Password    PasswordConfig
	TOTP        TOTPConfig
	DeviceTrust DeviceTrustConfig
	Account     AccountConfig
	Audit       AuditConfig
	Metrics     MetricsConfig
	Security    SecurityConfig
}

/*
====================================
TOKEN CONFIG
====================================
*/

// TokenConfig defines a public type used by shipauth APIs.
//
// The two signing secrets must differ. They are process-wide and read-only
// after Build; rotating either one invalidates all outstanding tokens of
// that kind instantly, with no grace period.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig defines a public type used by shipauth APIs.
//
// PasswordConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	MinLength   int
}

/*
====================================
TOTP CONFIG
====================================
*/

// TOTPConfig defines a public type used by shipauth APIs.
//
// TOTPConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type TOTPConfig struct {
	Issuer           string
	Digits           int
	Period           int
	Skew             int // time steps tolerated either side of now
	Algorithm        string
	BackupCodeCount  int
	BackupCodeLength int
	QRSize           int // pixels, square
}

// DeviceTrustConfig defines a public type used by shipauth APIs.
//
// TTL is the sliding trust window granted on every successful
// 2FA-bypassing use of a device.
type DeviceTrustConfig struct {
	TTL time.Duration
}

// AccountConfig defines a public type used by shipauth APIs.
//
// AccountConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AccountConfig struct {
	DefaultRole Role
}

// AuditConfig defines a public type used by shipauth APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig defines a public type used by shipauth APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled bool
}

// SecurityConfig defines a public type used by shipauth APIs.
//
// SecurityConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SecurityConfig struct {
	ProductionMode bool
}

const minProductionSecretBytes = 32

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig may return an error when input validation, dependency calls, or security checks fail.
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Token: TokenConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 7 * 24 * time.Hour,
			Issuer:     "shipauth",
			Leeway:     30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
			MinLength:   8,
		},
		TOTP: TOTPConfig{
			Issuer:           "shipauth",
			Digits:           6,
			Period:           30,
			Skew:             2,
			Algorithm:        "SHA1",
			BackupCodeCount:  10,
			BackupCodeLength: 8,
			QRSize:           256,
		},
		DeviceTrust: DeviceTrustConfig{
			TTL: 45 * 24 * time.Hour,
		},
		Account: AccountConfig{
			DefaultRole: RoleUser,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func applyConfigDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.Token.AccessTTL <= 0 {
		cfg.Token.AccessTTL = def.Token.AccessTTL
	}
	if cfg.Token.RefreshTTL <= 0 {
		cfg.Token.RefreshTTL = def.Token.RefreshTTL
	}
	if cfg.Token.Issuer == "" {
		cfg.Token.Issuer = def.Token.Issuer
	}
	if cfg.Token.Leeway < 0 {
		cfg.Token.Leeway = 0
	}

	if cfg.Password.Memory == 0 {
		cfg.Password = def.Password
	}
	if cfg.Password.MinLength <= 0 {
		cfg.Password.MinLength = def.Password.MinLength
	}

	if cfg.TOTP.Digits == 0 {
		cfg.TOTP.Digits = def.TOTP.Digits
	}
	if cfg.TOTP.Period == 0 {
		cfg.TOTP.Period = def.TOTP.Period
	}
	if cfg.TOTP.Skew == 0 {
		cfg.TOTP.Skew = def.TOTP.Skew
	}
	if cfg.TOTP.Algorithm == "" {
		cfg.TOTP.Algorithm = def.TOTP.Algorithm
	}
	if cfg.TOTP.Issuer == "" {
		cfg.TOTP.Issuer = def.TOTP.Issuer
	}
	if cfg.TOTP.BackupCodeCount == 0 {
		cfg.TOTP.BackupCodeCount = def.TOTP.BackupCodeCount
	}
	if cfg.TOTP.BackupCodeLength == 0 {
		cfg.TOTP.BackupCodeLength = def.TOTP.BackupCodeLength
	}
	if cfg.TOTP.QRSize == 0 {
		cfg.TOTP.QRSize = def.TOTP.QRSize
	}

	if cfg.DeviceTrust.TTL <= 0 {
		cfg.DeviceTrust.TTL = def.DeviceTrust.TTL
	}

	if cfg.Account.DefaultRole == "" {
		cfg.Account.DefaultRole = def.Account.DefaultRole
	}

	if cfg.Audit.BufferSize <= 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
}

func validateConfig(cfg Config) error {
	if len(cfg.Token.AccessSecret) == 0 || len(cfg.Token.RefreshSecret) == 0 {
		return errors.New("token access and refresh secrets are required")
	}
	if bytes.Equal(cfg.Token.AccessSecret, cfg.Token.RefreshSecret) {
		return errors.New("token access and refresh secrets must differ")
	}
	if cfg.Security.ProductionMode {
		if len(cfg.Token.AccessSecret) < minProductionSecretBytes ||
			len(cfg.Token.RefreshSecret) < minProductionSecretBytes {
			return errors.New("production mode requires signing secrets of at least 32 bytes")
		}
	}
	if cfg.Token.Leeway > 2*time.Minute {
		return errors.New("invalid leeway configuration")
	}
	if cfg.TOTP.Digits < 6 || cfg.TOTP.Digits > 8 {
		return errors.New("totp digits must be between 6 and 8")
	}
	if cfg.TOTP.Period < 15 || cfg.TOTP.Period > 120 {
		return errors.New("totp period must be between 15s and 120s")
	}
	if cfg.TOTP.Skew < 0 || cfg.TOTP.Skew > 4 {
		return errors.New("totp skew must be between 0 and 4 steps")
	}
	if cfg.TOTP.BackupCodeCount < 1 || cfg.TOTP.BackupCodeCount > 20 {
		return errors.New("backup code count must be between 1 and 20")
	}
	if cfg.TOTP.BackupCodeLength < 6 || cfg.TOTP.BackupCodeLength > 16 {
		return errors.New("backup code length must be between 6 and 16")
	}
	if !cfg.Account.DefaultRole.Valid() {
		return errors.New("invalid default role")
	}
	return nil
}
