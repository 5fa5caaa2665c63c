// Package cryptox derives and checks password verifiers. Passwords are never
// stored: an argon2id key is derived from the password and a random salt,
// and only the sha256 of that key is persisted.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"

	"github.com/dmitrijs2005/linkstash/internal/common"
	"golang.org/x/crypto/argon2"
)

const SaltSize = 16

func DeriveKey(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

func MakeVerifier(key []byte) []byte {
	hash := sha256.Sum256(key)
	return hash[:]
}

// NewCredentials returns a fresh salt and the verifier for password.
func NewCredentials(password string) (salt, verifier []byte) {
	salt = common.GenerateRandByteArray(SaltSize)
	key := DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)
	return salt, MakeVerifier(key)
}

// CheckPassword reports whether password matches the stored salt/verifier.
func CheckPassword(password string, salt, verifier []byte) bool {
	key := DeriveKey([]byte(password), salt)
	defer common.WipeByteArray(key)
	return subtle.ConstantTimeCompare(MakeVerifier(key), verifier) == 1
}
