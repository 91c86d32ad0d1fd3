package auth

import "golang.org/x/crypto/bcrypt"

// PasswordCost is the bcrypt cost for stored password hashes.
const PasswordCost = 10

// HashPassword returns the bcrypt hash of password
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
