package shipauth

import (
	"context"

	"github.com/harborline/shipauth/internal/flows"
)

func flowLoginRequest(req LoginRequest) flows.LoginRequest {
	return flows.LoginRequest{
		Email:         req.Email,
		Password:      req.Password,
		TwoFactorCode: req.TwoFactorCode,
		IsBackupCode:  req.IsBackupCode,
		DeviceID:      req.DeviceID,
		TrustDevice:   req.TrustDevice,
	}
}

// Login describes the login operation and its observable behavior.
//
// Login may return an error when input validation, dependency calls, or security checks fail.
// Login does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := e.flows.Login(ctx, flowLoginRequest(req))
	if err != nil {
		return nil, err
	}

	out := &LoginResult{
		AccessToken:       result.AccessToken,
		RefreshToken:      result.RefreshToken,
		TwoFactorRequired: result.TwoFactorRequired,
		UserID:            result.UserID,
		User:              profileFromRecord(result.User),
	}
	return out, nil
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh may return an error when input validation, dependency calls, or security checks fail.
// Refresh does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*RefreshResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	result, err := e.flows.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
	}, nil
}

// Authenticate describes the authenticate operation and its observable behavior.
//
// Authenticate may return an error when input validation, dependency calls, or security checks fail.
// Authenticate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Engine) Authenticate(ctx context.Context, accessToken string) (*AuthContext, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	record, err := e.flows.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	return &AuthContext{
		UserID: record.UserID,
		Email:  record.Email,
		Role:   Role(record.Role),
	}, nil
}

// Authorize describes the authorize operation and its observable behavior.
//
// A caller whose role is not in allowed fails with [ErrForbidden]; token
// failures stay [ErrUnauthenticated] so transports can map 401 vs 403.
func (e *Engine) Authorize(ctx context.Context, accessToken string, allowed ...Role) (*AuthContext, error) {
	auth, err := e.Authenticate(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	if len(allowed) == 0 {
		return auth, nil
	}
	for _, role := range allowed {
		if auth.Role == role {
			return auth, nil
		}
	}
	return nil, ErrForbidden
}
