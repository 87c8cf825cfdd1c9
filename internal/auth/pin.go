package auth

import "golang.org/x/crypto/bcrypt"

// HashPin returns a bcrypt hash of pin, or "" when no pin was chosen.
func HashPin(pin string) (string, error) {
	if pin == "" {
		return "", nil
	}
	b, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	return string(b), err
}

// CheckPin reports whether pin matches hash. A player without a pin can
// never rejoin.
func CheckPin(hash, pin string) bool {
	if hash == "" || pin == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
