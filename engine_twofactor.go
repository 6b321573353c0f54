package shipauth

import "context"

// GenerateTwoFactorSetup describes the generatetwofactorsetup operation and its observable behavior.
//
// GenerateTwoFactorSetup may return an error when input validation, dependency calls, or security checks fail.
// GenerateTwoFactorSetup does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GenerateTwoFactorSetup(ctx context.Context, userID string) (*TwoFactorSetup, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	setup, err := e.flows.GenerateTwoFactorSetup(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &TwoFactorSetup{
		Secret:  setup.Secret,
		URI:     setup.URI,
		QRImage: setup.QRImage,
	}, nil
}

// EnableTwoFactor describes the enabletwofactor operation and its observable behavior.
//
// The returned plaintext backup codes are shown exactly once; only their
// hashes survive the call.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID, code string) ([]string, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return e.flows.EnableTwoFactor(ctx, userID, code)
}

// DisableTwoFactor describes the disabletwofactor operation and its observable behavior.
//
// DisableTwoFactor may return an error when input validation, dependency calls, or security checks fail.
// DisableTwoFactor does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID, currentPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.DisableTwoFactor(ctx, userID, currentPassword)
}

// VerifyTwoFactorCode describes the verifytwofactorcode operation and its observable behavior.
//
// It reports a plain false for every failure mode, including an unknown
// user, so the verification surface cannot be used to probe accounts. A
// backup code that verifies is consumed by the call.
func (e *Engine) VerifyTwoFactorCode(ctx context.Context, userID, code string, isBackupCode bool) bool {
	if !e.ready() {
		return false
	}
	return e.flows.VerifyTwoFactorCode(ctx, userID, code, isBackupCode)
}
