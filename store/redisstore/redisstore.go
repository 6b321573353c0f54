package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	shipauth "github.com/harborline/shipauth"
)

// ErrRedisUnavailable is an exported constant or variable used by the authentication engine.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrRecordCorrupt is returned when a stored account blob fails to decode.
var ErrRecordCorrupt = errors.New("user record corrupt")

const defaultPrefix = "shipauth:"

// saveScript writes the record and repoints the email index, removing a
// stale index entry when the email changed.
const saveScript = `
local old = redis.call("GET", KEYS[1])
if old then
  local decoded = cjson.decode(old)
  if decoded.email and decoded.email ~= ARGV[2] then
    redis.call("DEL", KEYS[3] .. decoded.email)
  end
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[3])
return 1
`

var saveLua = redis.NewScript(saveScript)

const deleteScript = `
local old = redis.call("GET", KEYS[1])
if not old then
  return 0
end
local decoded = cjson.decode(old)
if decoded.email then
  redis.call("DEL", KEYS[2] .. decoded.email)
end
redis.call("DEL", KEYS[1])
return 1
`

var deleteLua = redis.NewScript(deleteScript)

// upsertDeviceScript purges expired trust entries and inserts or refreshes
// one device inside the server, so concurrent logins cannot lose each
// other's device writes. ARGV: device JSON, now (unix), device id.
const upsertDeviceScript = `
local raw = redis.call("GET", KEYS[1])
if not raw then
  return 0
end
local user = cjson.decode(raw)
local device = cjson.decode(ARGV[1])
local now = tonumber(ARGV[2])

local kept = {}
local found = false
if user.trusted_devices then
  for _, d in ipairs(user.trusted_devices) do
    if d.expires_at and d.expires_at > now then
      if d.device_id == ARGV[3] then
        d.last_used = device.last_used
        d.expires_at = device.expires_at
        if device.label ~= "" then
          d.label = device.label
        end
        found = true
      end
      kept[#kept + 1] = d
    end
  end
end
if not found then
  kept[#kept + 1] = device
end
user.trusted_devices = kept
redis.call("SET", KEYS[1], cjson.encode(user))
return 1
`

var upsertDeviceLua = redis.NewScript(upsertDeviceScript)

// record is the stored JSON shape. Times are unix seconds so the device
// upsert script can compare them as numbers.
type record struct {
	ID               string         `json:"id"`
	Email            string         `json:"email"`
	PasswordHash     string         `json:"password_hash"`
	Name             string         `json:"name,omitempty"`
	Role             string         `json:"role"`
	SuperAdmin       bool           `json:"super_admin,omitempty"`
	Active           bool           `json:"active"`
	TwoFactorEnabled bool           `json:"two_factor_enabled"`
	TwoFactorSecret  string         `json:"two_factor_secret,omitempty"`
	BackupCodeHashes []string       `json:"backup_code_hashes,omitempty"`
	TrustedDevices   []deviceRecord `json:"trusted_devices,omitempty"`
	LastLogin        int64          `json:"last_login,omitempty"`
	CreatedAt        int64          `json:"created_at,omitempty"`
}

type deviceRecord struct {
	DeviceID  string `json:"device_id"`
	Label     string `json:"label"`
	LastUsed  int64  `json:"last_used"`
	ExpiresAt int64  `json:"expires_at"`
}

// Store defines a public type used by shipauth APIs.
//
// Store instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Store struct {
	client *redis.Client
	prefix string
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{
		client: client,
		prefix: prefix,
	}
}

func (s *Store) userKey(id string) string {
	return s.prefix + "user:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + "email:" + email
}

func (s *Store) emailKeyPrefix() string {
	return s.prefix + "email:"
}

// FindByEmail describes the findbyemail operation and its observable behavior.
//
// FindByEmail may return an error when input validation, dependency calls, or security checks fail.
// FindByEmail does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByEmail(ctx context.Context, email string) (*shipauth.User, error) {
	id, err := s.client.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shipauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return s.FindByID(ctx, id)
}

// FindByID describes the findbyid operation and its observable behavior.
//
// FindByID may return an error when input validation, dependency calls, or security checks fail.
// FindByID does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) FindByID(ctx context.Context, id string) (*shipauth.User, error) {
	raw, err := s.client.Get(ctx, s.userKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shipauth.ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, ErrRecordCorrupt
	}
	return recordToUser(&rec), nil
}

// Save describes the save operation and its observable behavior.
//
// Save is a full-record upsert. The record write and the email index
// repoint run inside one Lua script.
func (s *Store) Save(ctx context.Context, user *shipauth.User) error {
	raw, err := json.Marshal(userToRecord(user))
	if err != nil {
		return err
	}

	keys := []string{
		s.userKey(user.ID),
		s.emailKey(user.Email),
		s.emailKeyPrefix(),
	}
	if err := saveLua.Run(ctx, s.client, keys, raw, user.Email, user.ID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Exists describes the exists operation and its observable behavior.
//
// Exists may return an error when input validation, dependency calls, or security checks fail.
// Exists does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Exists(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Exists(ctx, s.emailKey(email)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Delete describes the delete operation and its observable behavior.
//
// Delete may return an error when input validation, dependency calls, or security checks fail.
// Delete does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (s *Store) Delete(ctx context.Context, userID string) error {
	keys := []string{
		s.userKey(userID),
		s.emailKeyPrefix(),
	}
	res, err := deleteLua.Run(ctx, s.client, keys).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return shipauth.ErrUserNotFound
	}
	return nil
}

// UpsertTrustedDevice describes the upserttrusteddevice operation and its observable behavior.
//
// The purge of expired entries and the insert-or-refresh of the one device
// happen atomically inside Redis.
func (s *Store) UpsertTrustedDevice(ctx context.Context, userID string, device shipauth.TrustedDevice, now time.Time) error {
	raw, err := json.Marshal(deviceRecord{
		DeviceID:  device.DeviceID,
		Label:     device.Label,
		LastUsed:  device.LastUsed.Unix(),
		ExpiresAt: device.ExpiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	keys := []string{s.userKey(userID)}
	res, err := upsertDeviceLua.Run(ctx, s.client, keys,
		raw,
		strconv.FormatInt(now.Unix(), 10),
		device.DeviceID,
	).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if res == 0 {
		return shipauth.ErrUserNotFound
	}
	return nil
}

func userToRecord(user *shipauth.User) *record {
	rec := &record{
		ID:               user.ID,
		Email:            user.Email,
		PasswordHash:     user.PasswordHash,
		Name:             user.Name,
		Role:             string(user.Role),
		SuperAdmin:       user.SuperAdmin,
		Active:           user.Active,
		TwoFactorEnabled: user.TwoFactorEnabled,
		TwoFactorSecret:  user.TwoFactorSecret,
		BackupCodeHashes: user.BackupCodeHashes,
	}
	if !user.LastLogin.IsZero() {
		rec.LastLogin = user.LastLogin.Unix()
	}
	if !user.CreatedAt.IsZero() {
		rec.CreatedAt = user.CreatedAt.Unix()
	}
	for _, d := range user.TrustedDevices {
		rec.TrustedDevices = append(rec.TrustedDevices, deviceRecord{
			DeviceID:  d.DeviceID,
			Label:     d.Label,
			LastUsed:  d.LastUsed.Unix(),
			ExpiresAt: d.ExpiresAt.Unix(),
		})
	}
	return rec
}

func recordToUser(rec *record) *shipauth.User {
	user := &shipauth.User{
		ID:               rec.ID,
		Email:            rec.Email,
		PasswordHash:     rec.PasswordHash,
		Name:             rec.Name,
		Role:             shipauth.Role(rec.Role),
		SuperAdmin:       rec.SuperAdmin,
		Active:           rec.Active,
		TwoFactorEnabled: rec.TwoFactorEnabled,
		TwoFactorSecret:  rec.TwoFactorSecret,
		BackupCodeHashes: rec.BackupCodeHashes,
	}
	if rec.LastLogin > 0 {
		user.LastLogin = time.Unix(rec.LastLogin, 0).UTC()
	}
	if rec.CreatedAt > 0 {
		user.CreatedAt = time.Unix(rec.CreatedAt, 0).UTC()
	}
	for _, d := range rec.TrustedDevices {
		user.TrustedDevices = append(user.TrustedDevices, shipauth.TrustedDevice{
			DeviceID:  d.DeviceID,
			Label:     d.Label,
			LastUsed:  time.Unix(d.LastUsed, 0).UTC(),
			ExpiresAt: time.Unix(d.ExpiresAt, 0).UTC(),
		})
	}
	return user
}
