package entity

import (
	"time"
)

// User is the aggregate root for the credential store.
// Password holds the bcrypt hash, never the plaintext.
//
// The verification fields are only meaningful while a verification is
// pending; they are cleared together with IsEmailVerified flipping to true.
type User struct {
	ID         string
	Email      string
	Password   string
	Name       string
	IsVerified bool

	VerificationCode     string
	VerificationExpires  *time.Time
	VerificationAttempts int
	VerificationSentAt   *time.Time

	// ResetTokenHash is the sha256 hex digest of the outstanding reset token.
	ResetTokenHash string
	ResetExpires   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingVerification reports whether a verification code is on file.
func (u *User) HasPendingVerification() bool {
	return u.VerificationCode != "" && u.VerificationExpires != nil
}
