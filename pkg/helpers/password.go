package helpers

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost is the work factor used for stored password hashes.
const DefaultBcryptCost = 12

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	Cost int
}

// NewPasswordHasher returns a hasher with the given cost, falling back to
// DefaultBcryptCost when cost is outside bcrypt's accepted range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &PasswordHasher{Cost: cost}
}

// Hash hashes the plain text password using bcrypt
func (h *PasswordHasher) Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Compare compares a plain password with a bcrypt hash
func (h *PasswordHasher) Compare(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
