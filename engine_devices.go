package shipauth

import "context"

// ListTrustedDevices describes the listtrusteddevices operation and its observable behavior.
//
// Expired entries are filtered from the view but left in storage; they are
// only purged by the next trust mutation.
func (e *Engine) ListTrustedDevices(ctx context.Context, userID string) ([]TrustedDevice, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	records, err := e.flows.ListTrustedDevices(ctx, userID)
	if err != nil {
		return nil, err
	}
	devices := make([]TrustedDevice, len(records))
	for i, d := range records {
		devices[i] = TrustedDevice{
			DeviceID:  d.DeviceID,
			Label:     d.Label,
			LastUsed:  d.LastUsed,
			ExpiresAt: d.ExpiresAt,
		}
	}
	return devices, nil
}

// RevokeTrustedDevice describes the revoketrusteddevice operation and its observable behavior.
//
// RevokeTrustedDevice may return an error when input validation, dependency calls, or security checks fail.
// RevokeTrustedDevice does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) RevokeTrustedDevice(ctx context.Context, userID, deviceID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.RevokeTrustedDevice(ctx, userID, deviceID)
}
