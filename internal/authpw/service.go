// Package authpw holds password hashing for the fixed admin account and
// stored manager accounts. bcrypt replaces the unsalted fast hash the
// original deployment used; the login contract is unchanged.
package authpw

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword bcrypt-hashes a plaintext password for storage.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// Admin is the single configured admin credential. The plaintext password is
// hashed once at startup and discarded.
type Admin struct {
	Username     string
	PasswordHash string
}

func NewAdmin(username, password string) (Admin, error) {
	if username == "" || password == "" {
		return Admin{}, fmt.Errorf("admin username and password must be configured")
	}
	hash, err := HashPassword(password)
	if err != nil {
		return Admin{}, err
	}
	return Admin{Username: username, PasswordHash: hash}, nil
}

// Check verifies an admin login attempt. Username and password failures are
// indistinguishable to the caller.
func (a Admin) Check(username, password string) bool {
	if username != a.Username {
		return false
	}
	return CheckPassword(a.PasswordHash, password)
}
