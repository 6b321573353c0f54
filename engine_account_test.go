package shipauth

import (
	"context"
	"errors"
	"testing"
)

func TestRegisterDuplicateEmail(t *testing.T) {
	engine, _ := newTestEngine(t)
	registerTestUser(t, engine, "alice@example.com")

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "  ALICE@example.com ",
		Password: "Str0ng!Pass",
	})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "short",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want a PolicyError matching ErrValidation", err)
	}
	var policyErr *PolicyError
	if !errors.As(err, &policyErr) || len(policyErr.Reasons) == 0 {
		t.Fatalf("expected PolicyError with reasons, got %v", err)
	}
}

func TestRegisterInvalidRole(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Register(context.Background(), RegisterRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
		Role:     Role("overlord"),
	})
	if !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("got %v, want ErrRoleInvalid", err)
	}
}

func TestRegisterDefaultsRoleAndIssuesTokens(t *testing.T) {
	engine, store := newTestEngine(t)

	result := registerTestUser(t, engine, "alice@example.com")
	if result.User.Role != RoleUser {
		t.Fatalf("Role = %q, want default %q", result.User.Role, RoleUser)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("expected tokens from registration")
	}

	stored := store.mustGet(t, result.User.ID)
	if !stored.Active {
		t.Fatal("new account must start active")
	}
	if stored.CreatedAt.IsZero() {
		t.Fatal("CreatedAt not set")
	}
	if stored.PasswordHash == "" || stored.PasswordHash == "Str0ng!Pass" {
		t.Fatal("password must be stored hashed")
	}
}

func TestGetProfileHidesSecrets(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	profile, err := engine.GetProfile(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile.Email != "alice@example.com" || profile.ID != reg.User.ID {
		t.Fatalf("unexpected profile: %+v", profile)
	}

	if _, err := engine.GetProfile(context.Background(), "no-such-user"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")
	registerTestUser(t, engine, "bob@example.com")

	name := "Alice Cooper"
	profile, err := engine.UpdateProfile(context.Background(), reg.User.ID, ProfileUpdate{Name: &name})
	if err != nil {
		t.Fatalf("UpdateProfile failed: %v", err)
	}
	if profile.Name != name {
		t.Fatalf("Name = %q, want %q", profile.Name, name)
	}

	// Changing to another account's email is rejected.
	taken := "bob@example.com"
	if _, err := engine.UpdateProfile(context.Background(), reg.User.ID, ProfileUpdate{Email: &taken}); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("got %v, want ErrEmailTaken", err)
	}

	// A free address moves the account and the old one becomes usable.
	fresh := "Alice@New.Example.com"
	profile, err = engine.UpdateProfile(context.Background(), reg.User.ID, ProfileUpdate{Email: &fresh})
	if err != nil {
		t.Fatalf("UpdateProfile email change failed: %v", err)
	}
	if profile.Email != "alice@new.example.com" {
		t.Fatalf("email not normalized: %q", profile.Email)
	}
	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@new.example.com",
		Password: "Str0ng!Pass",
	}); err != nil {
		t.Fatalf("login with new email failed: %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	err := engine.ChangePassword(context.Background(), reg.User.ID, "wrong-current", "N3w!Passw0rd")
	if !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("got %v, want ErrInvalidPassword", err)
	}

	if err := engine.ChangePassword(context.Background(), reg.User.ID, "Str0ng!Pass", "weak"); !errors.Is(err, ErrValidation) {
		t.Fatalf("got %v, want ErrValidation for weak replacement", err)
	}

	if err := engine.ChangePassword(context.Background(), reg.User.ID, "Str0ng!Pass", "N3w!Passw0rd"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old password still accepted: %v", err)
	}
	if _, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "N3w!Passw0rd",
	}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
}

func TestAdminGuardsRejectSelfModification(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "admin@example.com")

	if err := engine.SetUserActive(context.Background(), reg.User.ID, reg.User.ID, false); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("SetUserActive self: got %v, want ErrSelfModification", err)
	}
	if err := engine.UpdateUserRole(context.Background(), reg.User.ID, reg.User.ID, RoleAdmin); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("UpdateUserRole self: got %v, want ErrSelfModification", err)
	}
	if err := engine.DeleteUser(context.Background(), reg.User.ID, reg.User.ID); !errors.Is(err, ErrSelfModification) {
		t.Fatalf("DeleteUser self: got %v, want ErrSelfModification", err)
	}
}

func TestAdminGuardsProtectSuperAdmin(t *testing.T) {
	engine, store := newTestEngine(t)
	admin := registerTestUser(t, engine, "admin@example.com")
	root := registerTestUser(t, engine, "root@example.com")

	user := store.mustGet(t, root.User.ID)
	user.SuperAdmin = true
	store.put(user)

	if err := engine.SetUserActive(context.Background(), admin.User.ID, root.User.ID, false); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("SetUserActive: got %v, want ErrSuperAdminProtected", err)
	}
	if err := engine.UpdateUserRole(context.Background(), admin.User.ID, root.User.ID, RoleViewer); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("UpdateUserRole: got %v, want ErrSuperAdminProtected", err)
	}
	if err := engine.DeleteUser(context.Background(), admin.User.ID, root.User.ID); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("DeleteUser: got %v, want ErrSuperAdminProtected", err)
	}
	if err := engine.AdminSetPassword(context.Background(), admin.User.ID, root.User.ID, "N3w!Passw0rd"); !errors.Is(err, ErrSuperAdminProtected) {
		t.Fatalf("AdminSetPassword: got %v, want ErrSuperAdminProtected", err)
	}

	// The super admin may reset its own password.
	if err := engine.AdminSetPassword(context.Background(), root.User.ID, root.User.ID, "N3w!Passw0rd"); err != nil {
		t.Fatalf("super admin self-reset failed: %v", err)
	}
}

func TestSetUserActiveAndRole(t *testing.T) {
	engine, store := newTestEngine(t)
	admin := registerTestUser(t, engine, "admin@example.com")
	target := registerTestUser(t, engine, "bob@example.com")

	if err := engine.SetUserActive(context.Background(), admin.User.ID, target.User.ID, false); err != nil {
		t.Fatalf("SetUserActive failed: %v", err)
	}
	if store.mustGet(t, target.User.ID).Active {
		t.Fatal("account not deactivated")
	}

	if err := engine.UpdateUserRole(context.Background(), admin.User.ID, target.User.ID, RoleViewer); err != nil {
		t.Fatalf("UpdateUserRole failed: %v", err)
	}
	if got := store.mustGet(t, target.User.ID).Role; got != RoleViewer {
		t.Fatalf("Role = %q, want %q", got, RoleViewer)
	}

	if err := engine.UpdateUserRole(context.Background(), admin.User.ID, target.User.ID, Role("overlord")); !errors.Is(err, ErrRoleInvalid) {
		t.Fatalf("got %v, want ErrRoleInvalid", err)
	}
}

func TestDeleteUserSoftDisableFallback(t *testing.T) {
	// Plain stubStore has no Delete, so the engine falls back to
	// deactivating the record.
	engine, store := newTestEngine(t)
	admin := registerTestUser(t, engine, "admin@example.com")
	target := registerTestUser(t, engine, "bob@example.com")

	if err := engine.DeleteUser(context.Background(), admin.User.ID, target.User.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	stored := store.mustGet(t, target.User.ID)
	if stored.Active {
		t.Fatal("fallback deletion must deactivate the account")
	}
}

func TestDeleteUserHardDeletion(t *testing.T) {
	store := &deletingStubStore{stubStore: newStubStore()}
	engine := buildTestEngine(t, store)

	admin := registerTestUser(t, engine, "admin@example.com")
	target := registerTestUser(t, engine, "bob@example.com")

	if err := engine.DeleteUser(context.Background(), admin.User.ID, target.User.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := engine.GetProfile(context.Background(), target.User.ID); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound after hard delete", err)
	}

	// The freed email is reusable.
	registerTestUser(t, engine, "bob@example.com")
}
