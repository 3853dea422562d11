package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword derives the bcrypt hash kept in AdminPasswordHash. Only the
// operator account is hashed; bot users authenticate by webhook origin.
func HashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
