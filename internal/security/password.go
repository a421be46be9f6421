package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/argon2"
)

const saltLen = 16

var argonParams = struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
}{
	time:    3,
	memory:  64 * 1024,
	threads: 2,
	keyLen:  32,
}

// NewSalt returns a fresh random salt.
func NewSalt() ([]byte, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// HashPassword derives the stored hash from a salt and a password. The same
// inputs always produce the same hex digest.
func HashPassword(salt []byte, password string) string {
	sum := argon2.IDKey([]byte(password), salt, argonParams.time, argonParams.memory, argonParams.threads, argonParams.keyLen)
	return hex.EncodeToString(sum)
}

// VerifyPassword re-derives the hash from the stored hex salt and the
// candidate password and compares it to the stored hash in constant time.
func VerifyPassword(saltHex, storedHash, password string) (bool, error) {
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	candidate := HashPassword(salt, password)
	return subtle.ConstantTimeCompare([]byte(candidate), []byte(storedHash)) == 1, nil
}
