package memstore

import (
	"context"
	"sync"

	shipauth "github.com/harborline/shipauth"
)

// Store defines a public type used by shipauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	mu      sync.RWMutex
	byID    map[string]*shipauth.User
	byEmail map[string]string
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Store {
	return &Store{
		byID:    make(map[string]*shipauth.User),
		byEmail: make(map[string]string),
	}
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(ctx context.Context, email string) (*shipauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, shipauth.ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByID(ctx context.Context, id string) (*shipauth.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, shipauth.ErrUserNotFound
	}
	return cloneUser(user), nil
}

// Save describes the save operation and its observable behavior.
//
// Save is a full-record upsert. A changed email re-points the identity
// index in the same critical section.
func (s *Store) Save(ctx context.Context, user *shipauth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.byID[user.ID]; ok && prev.Email != user.Email {
		delete(s.byEmail, prev.Email)
	}
	s.byID[user.ID] = cloneUser(user)
	s.byEmail[user.Email] = user.ID
	return nil
}

// Exists describes the exists operation and its observable behavior.
//
// Exists may return an error when input validation, dependency calls, or security checks fail.
// Exists does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.byEmail[email]
	return ok, nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[userID]
	if !ok {
		return shipauth.ErrUserNotFound
	}
	delete(s.byEmail, user.Email)
	delete(s.byID, userID)
	return nil
}

// Len reports how many accounts the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func cloneUser(user *shipauth.User) *shipauth.User {
	if user == nil {
		return nil
	}
	clone := *user
	if len(user.BackupCodeHashes) > 0 {
		clone.BackupCodeHashes = append([]string(nil), user.BackupCodeHashes...)
	}
	if len(user.TrustedDevices) > 0 {
		clone.TrustedDevices = append([]shipauth.TrustedDevice(nil), user.TrustedDevices...)
	}
	return &clone
}
