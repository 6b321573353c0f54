package shipauth

import (
	"context"
	"errors"
	"testing"
)

func TestRefreshMintsNewPair(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	result, err := engine.Refresh(context.Background(), reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected a full token pair")
	}

	// The new access token must authenticate.
	auth, err := engine.Authenticate(context.Background(), result.AccessToken)
	if err != nil {
		t.Fatalf("Authenticate with refreshed token failed: %v", err)
	}
	if auth.UserID != reg.User.ID {
		t.Fatalf("UserID = %q, want %q", auth.UserID, reg.User.ID)
	}
}

func TestRefreshRejectsGarbageToken(t *testing.T) {
	engine, _ := newTestEngine(t)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := engine.Refresh(context.Background(), token); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("Refresh(%q): got %v, want ErrTokenInvalid", token, err)
		}
	}
}

func TestRefreshRejectsAccessTokenAsRefreshToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	if _, err := engine.Refresh(context.Background(), reg.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestRefreshForDisabledAccountFailsAsInvalidToken(t *testing.T) {
	engine, store := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	user := store.mustGet(t, reg.User.ID)
	user.Active = false
	store.put(user)

	if _, err := engine.Refresh(context.Background(), reg.RefreshToken); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestAuthenticateRejectsTamperedToken(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	tampered := reg.AccessToken[:len(reg.AccessToken)-2] + "xx"
	if _, err := engine.Authenticate(context.Background(), tampered); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestAuthenticateDisabledAccount(t *testing.T) {
	engine, store := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	user := store.mustGet(t, reg.User.ID)
	user.Active = false
	store.put(user)

	if _, err := engine.Authenticate(context.Background(), reg.AccessToken); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("got %v, want ErrUnauthenticated", err)
	}
}

func TestAuthorizeRoleGate(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	// Unrestricted gate passes any authenticated caller.
	if _, err := engine.Authorize(context.Background(), reg.AccessToken); err != nil {
		t.Fatalf("open Authorize failed: %v", err)
	}

	if _, err := engine.Authorize(context.Background(), reg.AccessToken, RoleUser, RoleAdmin); err != nil {
		t.Fatalf("Authorize with matching role failed: %v", err)
	}

	_, err := engine.Authorize(context.Background(), reg.AccessToken, RoleAdmin)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden", err)
	}
}

func TestAuthorizeRoleComesFromClaims(t *testing.T) {
	engine, store := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	// Promote after issuance: the old token still carries the old role.
	user := store.mustGet(t, reg.User.ID)
	user.Role = RoleAdmin
	store.put(user)

	if _, err := engine.Authorize(context.Background(), reg.AccessToken, RoleAdmin); !errors.Is(err, ErrForbidden) {
		t.Fatalf("got %v, want ErrForbidden for stale-claims token", err)
	}

	// A fresh pair picks up the new role.
	refreshed, err := engine.Refresh(context.Background(), reg.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if _, err := engine.Authorize(context.Background(), refreshed.AccessToken, RoleAdmin); err != nil {
		t.Fatalf("Authorize after refresh failed: %v", err)
	}
}
