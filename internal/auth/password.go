package auth

import (
	"golang.org/x/crypto/bcrypt"

	"github.com/estorehq/estore/internal/domain"
)

// HashPassword produces a bcrypt hash suitable for storage.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", domain.Wrap(domain.KindInternal, err, "hash password")
	}
	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored hash.
func CheckPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
