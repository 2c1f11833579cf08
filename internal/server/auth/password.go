package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a salted bcrypt hash of plain at the given cost.
func HashPassword(plain string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword compares plain against a bcrypt hash.
func VerifyPassword(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NewDummyHash builds a throwaway hash at cost. Comparing against it when an
// e-mail is unknown keeps the response time close to a real password check.
func NewDummyHash(cost int) (string, error) {
	token, err := GenerateOpaqueToken()
	if err != nil {
		return "", err
	}
	return HashPassword(token[:32], cost)
}
