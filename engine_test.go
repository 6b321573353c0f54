package shipauth

import (
	"context"
	"sync"
	"testing"
	"time"
)

// stubStore is a minimal in-memory UserStore for engine tests. It clones
// records at the boundary so tests cannot accidentally share memory with
// the store.
type stubStore struct {
	mu      sync.Mutex
	byID    map[string]*User
	byEmail map[string]string

	saves     int
	failFinds bool
}

func newStubStore() *stubStore {
	return &stubStore{
		byID:    make(map[string]*User),
		byEmail: make(map[string]string),
	}
}

func (s *stubStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFinds {
		return nil, ErrStoreUnavailable
	}
	id, ok := s.byEmail[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneStubUser(s.byID[id]), nil
}

func (s *stubStore) FindByID(ctx context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFinds {
		return nil, ErrStoreUnavailable
	}
	user, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneStubUser(user), nil
}

func (s *stubStore) Save(ctx context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if prev, ok := s.byID[user.ID]; ok && prev.Email != user.Email {
		delete(s.byEmail, prev.Email)
	}
	s.byID[user.ID] = cloneStubUser(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

func (s *stubStore) Exists(ctx context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byEmail[email]
	return ok, nil
}

func (s *stubStore) saveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *stubStore) mustGet(t *testing.T, id string) *User {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[id]
	if !ok {
		t.Fatalf("user %s not in store", id)
	}
	return cloneStubUser(user)
}

func (s *stubStore) put(user *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[user.ID] = cloneStubUser(user)
	s.byEmail[user.Email] = user.ID
}

func cloneStubUser(user *User) *User {
	if user == nil {
		return nil
	}
	clone := *user
	clone.BackupCodeHashes = append([]string(nil), user.BackupCodeHashes...)
	clone.TrustedDevices = append([]TrustedDevice(nil), user.TrustedDevices...)
	return &clone
}

// deletingStubStore adds the UserDeleter upgrade.
type deletingStubStore struct {
	*stubStore
}

func (s *deletingStubStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, userID)
	return nil
}

// upsertingStubStore adds the DeviceUpserter upgrade. Save stays a
// full-record overwrite, mirroring the Redis store's split between the
// batched record write and the atomic device write.
type upsertingStubStore struct {
	*stubStore

	upserts int
}

func (s *upsertingStubStore) UpsertTrustedDevice(ctx context.Context, userID string, device TrustedDevice, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.byID[userID]
	if !ok {
		return ErrUserNotFound
	}
	kept := user.TrustedDevices[:0]
	for _, d := range user.TrustedDevices {
		if d.DeviceID == device.DeviceID {
			if device.Label == "" {
				device.Label = d.Label
			}
			continue
		}
		if !d.ExpiresAt.After(now) {
			continue
		}
		kept = append(kept, d)
	}
	user.TrustedDevices = append(kept, device)
	s.upserts++
	return nil
}

func (s *upsertingStubStore) upsertCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upserts
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Token.AccessSecret = []byte("test-access-secret-0123456789abcdef")
	cfg.Token.RefreshSecret = []byte("test-refresh-secret-0123456789abcdef")
	// Floor-level argon2 cost keeps the suite fast.
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Password.SaltLength = 16
	cfg.Password.KeyLength = 16
	return cfg
}

func newTestEngine(t *testing.T) (*Engine, *stubStore) {
	t.Helper()

	store := newStubStore()
	engine := buildTestEngine(t, store)
	return engine, store
}

func buildTestEngine(t *testing.T, store UserStore) *Engine {
	t.Helper()

	engine, err := New().
		WithConfig(testConfig()).
		WithStore(store).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

func registerTestUser(t *testing.T, engine *Engine, email string) *RegisterResult {
	t.Helper()

	result, err := engine.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "Str0ng!Pass",
		Name:     "Test User",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return result
}

// enableTestTwoFactor walks the full enrollment: setup, first code, enable.
// It returns the shared secret and the one-time backup codes.
func enableTestTwoFactor(t *testing.T, engine *Engine, userID string) (string, []string) {
	t.Helper()

	setup, err := engine.GenerateTwoFactorSetup(context.Background(), userID)
	if err != nil {
		t.Fatalf("GenerateTwoFactorSetup failed: %v", err)
	}

	codes, err := engine.EnableTwoFactor(context.Background(), userID, totpCodeAt(t, setup.Secret, time.Now()))
	if err != nil {
		t.Fatalf("EnableTwoFactor failed: %v", err)
	}
	return setup.Secret, codes
}

func totpCodeAt(t *testing.T, secretBase32 string, at time.Time) string {
	t.Helper()

	key, err := b32.DecodeString(secretBase32)
	if err != nil {
		t.Fatalf("decode secret failed: %v", err)
	}
	code, err := hotpCode(key, at.Unix()/30, 6, "SHA1")
	if err != nil {
		t.Fatalf("hotpCode failed: %v", err)
	}
	return code
}
