package auth

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type PasswordHasher interface {
	Hash(password []byte) ([]byte, error)
	Compare(hash, password []byte) error
}

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(pw []byte) ([]byte, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword(pw, cost)
}

func (BcryptHasher) Compare(hash, pw []byte) error {
	return bcrypt.CompareHashAndPassword(hash, pw)
}

// IsHashed reports whether value already looks like a bcrypt hash.
func IsHashed(value string) bool {
	if len(value) != 60 {
		return false
	}
	if !strings.HasPrefix(value, "$2a$") && !strings.HasPrefix(value, "$2b$") && !strings.HasPrefix(value, "$2y$") {
		return false
	}
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}

// HashPassword hashes password unless it is already a bcrypt hash.
func HashPassword(h PasswordHasher, password string) (string, error) {
	if IsHashed(password) {
		return password, nil
	}

	hashed, err := h.Hash([]byte(password))
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
