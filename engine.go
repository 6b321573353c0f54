package shipauth

import (
	"errors"

	"github.com/harborline/shipauth/internal/audit"
	"github.com/harborline/shipauth/internal/flows"
	"github.com/harborline/shipauth/jwt"
	"github.com/harborline/shipauth/password"
)

// Engine defines a public type used by shipauth APIs.
//
// Engine instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Engine struct {
	config         Config
	store          UserStore
	deviceUpserter DeviceUpserter
	userDeleter    UserDeleter
	audit          *audit.Dispatcher
	metrics        *Metrics
	passwordHash   *password.Argon2
	policy         *password.Policy
	totp           *totpManager
	jwtManager     *jwt.Manager
	flows          flows.Service
}

// Close describes the close operation and its observable behavior.
//
// Close may return an error when input validation, dependency calls, or security checks fail.
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
//
// AuditDropped may return an error when input validation, dependency calls, or security checks fail.
// AuditDropped does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot may return an error when input validation, dependency calls, or security checks fail.
// MetricsSnapshot does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.store != nil && e.flows.Initialized()
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound)
}

// userToRecord converts the public store model into the flow-local one.
// The record carries the full security state so flows can batch mutations
// into a single save.
func userToRecord(user *User) *flows.UserRecord {
	if user == nil {
		return nil
	}
	rec := &flows.UserRecord{
		ID:               user.ID,
		Email:            user.Email,
		PasswordHash:     user.PasswordHash,
		Name:             user.Name,
		Role:             string(user.Role),
		SuperAdmin:       user.SuperAdmin,
		Active:           user.Active,
		TwoFactorEnabled: user.TwoFactorEnabled,
		TwoFactorSecret:  user.TwoFactorSecret,
		BackupCodeHashes: user.BackupCodeHashes,
		LastLogin:        user.LastLogin,
		CreatedAt:        user.CreatedAt,
	}
	if len(user.TrustedDevices) > 0 {
		rec.TrustedDevices = make([]flows.DeviceRecord, len(user.TrustedDevices))
		for i, d := range user.TrustedDevices {
			rec.TrustedDevices[i] = flows.DeviceRecord{
				DeviceID:  d.DeviceID,
				Label:     d.Label,
				LastUsed:  d.LastUsed,
				ExpiresAt: d.ExpiresAt,
			}
		}
	}
	return rec
}

func recordToUser(rec *flows.UserRecord) *User {
	if rec == nil {
		return nil
	}
	user := &User{
		ID:               rec.ID,
		Email:            rec.Email,
		PasswordHash:     rec.PasswordHash,
		Name:             rec.Name,
		Role:             Role(rec.Role),
		SuperAdmin:       rec.SuperAdmin,
		Active:           rec.Active,
		TwoFactorEnabled: rec.TwoFactorEnabled,
		TwoFactorSecret:  rec.TwoFactorSecret,
		BackupCodeHashes: rec.BackupCodeHashes,
		LastLogin:        rec.LastLogin,
		CreatedAt:        rec.CreatedAt,
	}
	if len(rec.TrustedDevices) > 0 {
		user.TrustedDevices = make([]TrustedDevice, len(rec.TrustedDevices))
		for i, d := range rec.TrustedDevices {
			user.TrustedDevices[i] = TrustedDevice{
				DeviceID:  d.DeviceID,
				Label:     d.Label,
				LastUsed:  d.LastUsed,
				ExpiresAt: d.ExpiresAt,
			}
		}
	}
	return user
}

func profileFromRecord(p *flows.ProfileRecord) *Profile {
	if p == nil {
		return nil
	}
	return &Profile{
		ID:               p.ID,
		Email:            p.Email,
		Name:             p.Name,
		Role:             Role(p.Role),
		TwoFactorEnabled: p.TwoFactorEnabled,
		LastLogin:        p.LastLogin,
	}
}
