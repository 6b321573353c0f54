package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	shipauth "github.com/harborline/shipauth"
)

type guardTestStore struct {
	users map[string]*shipauth.User
}

func newGuardTestStore() *guardTestStore {
	return &guardTestStore{users: make(map[string]*shipauth.User)}
}

func (s *guardTestStore) FindByEmail(ctx context.Context, email string) (*shipauth.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, shipauth.ErrUserNotFound
}

func (s *guardTestStore) FindByID(ctx context.Context, id string) (*shipauth.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, shipauth.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (s *guardTestStore) Save(ctx context.Context, user *shipauth.User) error {
	clone := *user
	s.users[user.ID] = &clone
	return nil
}

func (s *guardTestStore) Exists(ctx context.Context, email string) (bool, error) {
	_, err := s.FindByEmail(ctx, email)
	return err == nil, nil
}

func newGuardTestEngine(t *testing.T) (*shipauth.Engine, string) {
	t.Helper()

	cfg := shipauth.DefaultConfig()
	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16

	engine, err := shipauth.New().
		WithConfig(cfg).
		WithStore(newGuardTestStore()).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	reg, err := engine.Register(context.Background(), shipauth.RegisterRequest{
		Email:    "alice@example.com",
		Password: "Str0ng!Pass",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return engine, reg.AccessToken
}

func okHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth, ok := AuthFromContext(r.Context())
		if !ok || auth.UserID == "" {
			t.Error("identity missing from request context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestGuardAcceptsValidBearerToken(t *testing.T) {
	engine, token := newGuardTestEngine(t)
	handler := Guard(engine)(okHandler(t))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGuardRejectsMissingOrMalformedHeader(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without credentials")
	}))

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic dXNlcjpwYXNz", "token abc"} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("header %q: status = %d, want 401", header, rec.Code)
		}
	}
}

func TestGuardRejectsInvalidToken(t *testing.T) {
	engine, _ := newGuardTestEngine(t)
	handler := Guard(engine)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with a bad token")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-real-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestGuardNilEngine(t *testing.T) {
	handler := Guard(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached without an engine")
	}))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRole(t *testing.T) {
	engine, token := newGuardTestEngine(t)

	// The registered account holds the default user role.
	allowed := RequireRole(engine, shipauth.RoleUser)(okHandler(t))
	req := httptest.NewRequest(http.MethodGet, "/area", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	allowed.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	denied := RequireRole(engine, shipauth.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler reached with the wrong role")
	}))
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	denied.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}
