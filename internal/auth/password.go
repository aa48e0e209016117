package auth

import (
	"strings"

	"github.com/alexedwards/argon2id"
)

var DefaultPasswordParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword produces the PHC-encoded argon2id hash stored in the
// development users file.
func HashPassword(password string) (string, error) {
	return argon2id.CreateHash(password, DefaultPasswordParams)
}

// VerifyPassword returns ErrInvalidCredentials on mismatch. A malformed hash
// is reported as its own error so misconfigured user files are visible.
func VerifyPassword(password, hash string) error {
	if strings.TrimSpace(hash) == "" {
		return ErrInvalidCredentials
	}
	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return err
	}
	if !match {
		return ErrInvalidCredentials
	}
	return nil
}
