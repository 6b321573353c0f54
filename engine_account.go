package shipauth

import (
	"context"

	"github.com/harborline/shipauth/internal/flows"
)

// Register describes the register operation and its observable behavior.
//
// Register may return an error when input validation, dependency calls, or security checks fail.
// Register does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	if reasons := e.policy.Check(req.Password); len(reasons) > 0 {
		e.emitAudit(ctx, auditEventRegisterFailure, false, "", ErrValidation, nil)
		return nil, &PolicyError{Reasons: reasons}
	}

	result, err := e.flows.Register(ctx, flows.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Role:     string(req.Role),
	})
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		User:         *profileFromRecord(&result.User),
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// GetProfile describes the getprofile operation and its observable behavior.
//
// GetProfile may return an error when input validation, dependency calls, or security checks fail.
// GetProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	profile, err := e.flows.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return profileFromRecord(profile), nil
}

// UpdateProfile describes the updateprofile operation and its observable behavior.
//
// UpdateProfile may return an error when input validation, dependency calls, or security checks fail.
// UpdateProfile does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateProfile(ctx context.Context, userID string, update ProfileUpdate) (*Profile, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	profile, err := e.flows.UpdateProfile(ctx, userID, flows.ProfileUpdateRecord{
		Name:  update.Name,
		Email: update.Email,
	})
	if err != nil {
		return nil, err
	}
	return profileFromRecord(profile), nil
}

// ChangePassword describes the changepassword operation and its observable behavior.
//
// ChangePassword may return an error when input validation, dependency calls, or security checks fail.
// ChangePassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if reasons := e.policy.Check(newPassword); len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return e.flows.ChangePassword(ctx, userID, currentPassword, newPassword)
}

// SetUserActive describes the setuseractive operation and its observable behavior.
//
// SetUserActive may return an error when input validation, dependency calls, or security checks fail.
// SetUserActive does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) SetUserActive(ctx context.Context, actorID, targetID string, active bool) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.SetUserActive(ctx, actorID, targetID, active)
}

// UpdateUserRole describes the updateuserrole operation and its observable behavior.
//
// UpdateUserRole may return an error when input validation, dependency calls, or security checks fail.
// UpdateUserRole does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) UpdateUserRole(ctx context.Context, actorID, targetID string, role Role) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.UpdateUserRole(ctx, actorID, targetID, string(role))
}

// AdminSetPassword describes the adminsetpassword operation and its observable behavior.
//
// AdminSetPassword may return an error when input validation, dependency calls, or security checks fail.
// AdminSetPassword does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) AdminSetPassword(ctx context.Context, actorID, targetID, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	if reasons := e.policy.Check(newPassword); len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return e.flows.AdminSetPassword(ctx, actorID, targetID, newPassword)
}

// DeleteUser describes the deleteuser operation and its observable behavior.
//
// DeleteUser may return an error when input validation, dependency calls, or security checks fail.
// DeleteUser does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) DeleteUser(ctx context.Context, actorID, targetID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flows.DeleteUser(ctx, actorID, targetID)
}
