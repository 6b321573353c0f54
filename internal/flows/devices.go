package flows

import (
	"context"
	"time"
)

// DeviceRecord is the flow-local trusted-device model.
type DeviceRecord struct {
	DeviceID  string
	Label     string
	LastUsed  time.Time
	ExpiresAt time.Time
}

// DeviceMetrics carries metric IDs needed by device flows.
type DeviceMetrics struct {
	DeviceRevoked int
}

// DeviceEvents carries audit event names used by device flows.
type DeviceEvents struct {
	DeviceRevoked string
}

// DeviceErrors carries host-level sentinel errors used by device flows.
type DeviceErrors struct {
	EngineNotReady   error
	UserNotFound     error
	DeviceNotFound   error
	StoreUnavailable error
}

// DeviceDeps captures trusted-device list dependencies.
type DeviceDeps struct {
	Now func() time.Time

	FindByID   func(context.Context, string) (*UserRecord, error)
	SaveUser   func(context.Context, *UserRecord) error
	IsNotFound func(error) bool

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics DeviceMetrics
	Events  DeviceEvents
	Errors  DeviceErrors
}

// PurgeExpiredDevices drops every entry whose trust window has closed.
// Expired entries are inert and must never survive a trust mutation.
func PurgeExpiredDevices(list []DeviceRecord, now time.Time) []DeviceRecord {
	kept := list[:0]
	for _, d := range list {
		if d.ExpiresAt.After(now) {
			kept = append(kept, d)
		}
	}
	return kept
}

// IsTrustedDevice reports whether deviceID has a live trust entry. An
// empty deviceID is always untrusted.
func IsTrustedDevice(list []DeviceRecord, deviceID string, now time.Time) bool {
	if deviceID == "" {
		return false
	}
	for _, d := range list {
		if d.DeviceID == deviceID && d.ExpiresAt.After(now) {
			return true
		}
	}
	return false
}

// UpsertDevice purges expired entries, then refreshes the matching entry
// or appends a new one with a trust window of ttl from now. Purge must run
// first so the set cannot grow unboundedly with stale entries.
func UpsertDevice(list []DeviceRecord, device DeviceRecord, now time.Time, ttl time.Duration) []DeviceRecord {
	kept := PurgeExpiredDevices(list, now)

	device.LastUsed = now
	device.ExpiresAt = now.Add(ttl)

	for i := range kept {
		if kept[i].DeviceID == device.DeviceID {
			if device.Label == "" {
				device.Label = kept[i].Label
			}
			kept[i] = device
			return kept
		}
	}
	return append(kept, device)
}

// RunListTrustedDevices returns the live entries of a user's device set.
// Expired entries are filtered from the view but not written back; purging
// is reserved for mutation paths.
func RunListTrustedDevices(ctx context.Context, userID string, deps DeviceDeps) ([]DeviceRecord, error) {
	if deps.Now == nil {
		deps.Now = time.Now
	}
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

	now := deps.Now()
	live := make([]DeviceRecord, 0, len(user.TrustedDevices))
	for _, d := range user.TrustedDevices {
		if d.ExpiresAt.After(now) {
			live = append(live, d)
		}
	}
	return live, nil
}

// RunRevokeTrustedDevice removes one entry from a user's device set.
// Expired entries are purged in the same write.
func RunRevokeTrustedDevice(ctx context.Context, userID, deviceID string, deps DeviceDeps) error {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.FindByID == nil || deps.SaveUser == nil || deps.IsNotFound == nil {
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

	now := deps.Now()
	found := false
	kept := user.TrustedDevices[:0]
	for _, d := range user.TrustedDevices {
		if d.DeviceID == deviceID {
			found = true
			continue
		}
		if d.ExpiresAt.After(now) {
			kept = append(kept, d)
		}
	}
	if !found {
		return deps.Errors.DeviceNotFound
	}
	user.TrustedDevices = kept

	if err := deps.SaveUser(ctx, user); err != nil {
		return deps.Errors.StoreUnavailable
	}

	deps.MetricInc(deps.Metrics.DeviceRevoked)
	deps.EmitAudit(ctx, deps.Events.DeviceRevoked, true, userID, nil, func() map[string]string {
		return map[string]string{
			"device_id": deviceID,
		}
	})
	return nil
}
