package flows

import "context"

// AccessClaimsRecord is the flow-local decoded access-token claim set.
type AccessClaimsRecord struct {
	UID   string
	Email string
	Role  string
}

// AuthRecord is the flow-local authenticated request identity.
type AuthRecord struct {
	UserID string
	Email  string
	Role   string
}

// ValidateMetrics carries metric IDs needed by the validate flow.
type ValidateMetrics struct {
	ValidateSuccess int
	ValidateFailure int
}

// ValidateErrors carries host-level sentinel errors used by the validate flow.
type ValidateErrors struct {
	EngineNotReady   error
	Unauthenticated  error
	StoreUnavailable error
}

// ValidateDeps captures authorization-gate dependencies.
type ValidateDeps struct {
	ParseAccess func(token string) (*AccessClaimsRecord, error)

	FindByID   func(context.Context, string) (*UserRecord, error)
	IsNotFound func(error) bool

	MetricInc func(int)

	Metrics ValidateMetrics
	Errors  ValidateErrors
}

// RunAuthenticate verifies a presented access token and re-reads the user
// for the live checks only: the account must still exist and be active.
// Role deliberately comes from the token claims, so a role change becomes
// effective at the next refresh rather than immediately.
func RunAuthenticate(ctx context.Context, token string, deps ValidateDeps) (*AuthRecord, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = func(int) {}
	}
	if deps.ParseAccess == nil || deps.FindByID == nil || deps.IsNotFound == nil {
		return nil, deps.Errors.EngineNotReady
	}

	if token == "" {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthenticated
	}

	claims, err := deps.ParseAccess(token)
	if err != nil {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthenticated
	}

	user, err := deps.FindByID(ctx, claims.UID)
	if err != nil {
		if !deps.IsNotFound(err) {
			return nil, deps.Errors.StoreUnavailable
		}
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthenticated
	}
	if !user.Active {
		deps.MetricInc(deps.Metrics.ValidateFailure)
		return nil, deps.Errors.Unauthenticated
	}

	deps.MetricInc(deps.Metrics.ValidateSuccess)
	return &AuthRecord{
		UserID: claims.UID,
		Email:  claims.Email,
		Role:   claims.Role,
	}, nil
}
