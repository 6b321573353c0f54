package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// BackupCodeAlphabet excludes easily confused glyphs (0/O, 1/I/L).
const BackupCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewUserID returns a fresh opaque account identifier.
func NewUserID() string {
	return uuid.NewString()
}

// NewBackupCode generates one recovery code of the given length from
// [BackupCodeAlphabet] using crypto/rand.
func NewBackupCode(length int) (string, error) {
	if length < 6 || length > 16 {
		return "", errors.New("invalid backup code length")
	}

	var b strings.Builder
	b.Grow(length)

	max := big.NewInt(int64(len(BackupCodeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(BackupCodeAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// HashBackupCode returns the hex SHA-256 of a normalized backup code. Only
// this digest is ever persisted; submissions are normalized the same way
// before set-membership checks.
func HashBackupCode(code string) string {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
