package shipauth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTwoFactorEnrollment(t *testing.T) {
	engine, store := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	setup, err := engine.GenerateTwoFactorSetup(context.Background(), reg.User.ID)
	if err != nil {
		t.Fatalf("GenerateTwoFactorSetup failed: %v", err)
	}
	if setup.Secret == "" || setup.URI == "" || len(setup.QRImage) == 0 {
		t.Fatalf("incomplete setup material: %+v", setup)
	}

	// Setup stores a pending secret but does not enable.
	pending := store.mustGet(t, reg.User.ID)
	if pending.TwoFactorEnabled {
		t.Fatal("2FA enabled before confirmation")
	}
	if pending.TwoFactorSecret != setup.Secret {
		t.Fatal("pending secret not persisted")
	}

	codes, err := engine.EnableTwoFactor(context.Background(), reg.User.ID, totpCodeAt(t, setup.Secret, time.Now()))
	if err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}
	if len(codes) != 10 {
		t.Fatalf("got %d backup codes, want 10", len(codes))
	}
	for _, code := range codes {
		if len(code) != 8 {
			t.Fatalf("backup code %q has length %d, want 8", code, len(code))
		}
		for _, r := range code {
			if !strings.ContainsRune("ABCDEFGHJKLMNPQRSTUVWXYZ23456789", r) {
				t.Fatalf("backup code %q uses character %q outside the alphabet", code, r)
			}
		}
	}

	enabled := store.mustGet(t, reg.User.ID)
	if !enabled.TwoFactorEnabled {
		t.Fatal("2FA not enabled after confirmation")
	}
	if len(enabled.BackupCodeHashes) != len(codes) {
		t.Fatalf("stored %d hashes, want %d", len(enabled.BackupCodeHashes), len(codes))
	}
	for i, hash := range enabled.BackupCodeHashes {
		if hash == codes[i] {
			t.Fatal("backup codes must be stored hashed")
		}
	}
}

func TestEnableTwoFactorWrongCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	if _, err := engine.GenerateTwoFactorSetup(context.Background(), reg.User.ID); err != nil {
		t.Fatalf("GenerateTwoFactorSetup failed: %v", err)
	}
	if _, err := engine.EnableTwoFactor(context.Background(), reg.User.ID, "000000"); !errors.Is(err, ErrTwoFactorCodeInvalid) {
		t.Fatalf("got %v, want ErrTwoFactorCodeInvalid", err)
	}
}

func TestEnableTwoFactorWithoutSetup(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	if _, err := engine.EnableTwoFactor(context.Background(), reg.User.ID, "000000"); !errors.Is(err, ErrNoPendingSecret) {
		t.Fatalf("got %v, want ErrNoPendingSecret", err)
	}
}

func TestGenerateTwoFactorSetupWhenAlreadyEnabled(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")
	enableTestTwoFactor(t, engine, reg.User.ID)

	if _, err := engine.GenerateTwoFactorSetup(context.Background(), reg.User.ID); !errors.Is(err, ErrTwoFactorAlreadyEnabled) {
		t.Fatalf("got %v, want ErrTwoFactorAlreadyEnabled", err)
	}
}

func TestDisableTwoFactor(t *testing.T) {
	engine, store := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")
	enableTestTwoFactor(t, engine, reg.User.ID)

	if err := engine.DisableTwoFactor(context.Background(), reg.User.ID, "wrong-password"); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("got %v, want ErrInvalidPassword", err)
	}

	if err := engine.DisableTwoFactor(context.Background(), reg.User.ID, "Str0ng!Pass"); err != nil {
		t.Fatalf("DisableTwoFactor failed: %v", err)
	}

	user := store.mustGet(t, reg.User.ID)
	if user.TwoFactorEnabled || user.TwoFactorSecret != "" || len(user.BackupCodeHashes) != 0 {
		t.Fatalf("2FA state not fully cleared: %+v", user)
	}

	// Logins no longer ask for a second factor.
	result, err := engine.Login(context.Background(), LoginRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Login after disable failed: %v", err)
	}
	if result.TwoFactorRequired {
		t.Fatal("2FA still required after disable")
	}
}

func TestVerifyTwoFactorCode(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")
	secret, codes := enableTestTwoFactor(t, engine, reg.User.ID)

	ctx := context.Background()
	if !engine.VerifyTwoFactorCode(ctx, reg.User.ID, totpCodeAt(t, secret, time.Now()), false) {
		t.Fatal("valid TOTP code rejected")
	}
	if engine.VerifyTwoFactorCode(ctx, reg.User.ID, "000000", false) {
		t.Fatal("wrong TOTP code accepted")
	}
	if engine.VerifyTwoFactorCode(ctx, "no-such-user", "000000", false) {
		t.Fatal("unknown user must verify false, not error")
	}

	// Backup code verification consumes the code.
	if !engine.VerifyTwoFactorCode(ctx, reg.User.ID, codes[0], true) {
		t.Fatal("valid backup code rejected")
	}
	if engine.VerifyTwoFactorCode(ctx, reg.User.ID, codes[0], true) {
		t.Fatal("backup code reusable")
	}
}

func TestVerifyTwoFactorCodeDisabledAccount(t *testing.T) {
	engine, _ := newTestEngine(t)
	reg := registerTestUser(t, engine, "alice@example.com")

	if engine.VerifyTwoFactorCode(context.Background(), reg.User.ID, "000000", false) {
		t.Fatal("verification must fail when 2FA is not enabled")
	}
}
