package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"
)

const saltSize = 16

// HashPassword derives a credential string for the given password. The
// result is "base64(salt):base64(sha256(salt || password))" with a fresh
// random salt per call, so hashing the same password twice yields two
// different credential strings.
//
// A single-round salted digest is deliberately weaker than an iterated KDF
// such as bcrypt or argon2. The format is pinned by stored credentials;
// changing the scheme means re-hashing every user at next login, not
// swapping this function.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	digest := sha256.Sum256(append(salt, []byte(password)...))

	return base64.StdEncoding.EncodeToString(salt) + ":" + base64.StdEncoding.EncodeToString(digest[:]), nil
}

// VerifyPassword reports whether password matches the stored credential
// string. Any malformed credential (missing delimiter, bad base64) verifies
// as false rather than erroring.
func VerifyPassword(password, stored string) bool {
	saltPart, hashPart, ok := strings.Cut(stored, ":")
	if !ok {
		return false
	}

	salt, err := base64.StdEncoding.DecodeString(saltPart)
	if err != nil {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(hashPart)
	if err != nil {
		return false
	}

	digest := sha256.Sum256(append(salt, []byte(password)...))
	return subtle.ConstantTimeCompare(digest[:], want) == 1
}
