package flows

import "context"

// RefreshResult is the flow-local refresh response shape.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	EngineNotReady   error
	TokenInvalid     error
	StoreUnavailable error
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	ParseRefresh func(token string) (uid string, err error)

	FindByID   func(context.Context, string) (*UserRecord, error)
	IsNotFound func(error) bool

	IssueAccessToken  func(uid, email, role string) (string, error)
	IssueRefreshToken func(uid string) (string, error)

	MetricInc func(int)
	EmitAudit func(context.Context, string, bool, string, error, func() map[string]string)

	Metrics RefreshMetrics
	Events  RefreshEvents
	Errors  RefreshErrors
}

// RunRefresh mints a new access+refresh pair from a valid refresh token.
// A token for a deleted or deactivated account fails with the same unified
// token error as a forged or expired one.
func RunRefresh(ctx context.Context, refreshToken string, deps RefreshDeps) (*RefreshResult, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.EmitAudit == nil {
		deps.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if deps.ParseRefresh == nil ||
		deps.FindByID == nil ||
		deps.IsNotFound == nil ||
		deps.IssueAccessToken == nil ||
		deps.IssueRefreshToken == nil {
		return nil, deps.Errors.EngineNotReady
	}

	uid, err := deps.ParseRefresh(refreshToken)
	if err != nil {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, "", deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "parse_failed",
			}
		})
		return nil, deps.Errors.TokenInvalid
	}

	user, err := deps.FindByID(ctx, uid)
	if err != nil {
		if !deps.IsNotFound(err) {
			return nil, deps.Errors.StoreUnavailable
		}
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, uid, deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "user_not_found",
			}
		})
		return nil, deps.Errors.TokenInvalid
	}
	if !user.Active {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, uid, deps.Errors.TokenInvalid, func() map[string]string {
			return map[string]string{
				"reason": "account_disabled",
			}
		})
		return nil, deps.Errors.TokenInvalid
	}

	access, err := deps.IssueAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	refresh, err := deps.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, user.ID, nil, nil)
	return &RefreshResult{
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
