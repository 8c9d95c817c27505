package helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"math/big"
	"strconv"
	"time"
)

const (
	// VerificationCodeTTL is how long an emailed verification code stays valid.
	VerificationCodeTTL = 15 * time.Minute
	// VerificationResendGap is the minimum time between two issued codes.
	VerificationResendGap = 60 * time.Second
	// MaxVerificationAttempts locks a code after this many wrong submissions.
	MaxVerificationAttempts = 5
	// ResetTokenTTL is the lifetime of a password reset token.
	ResetTokenTTL = time.Hour
)

var codeSpan = big.NewInt(900000)

// GenVerificationCode returns a 6-digit code drawn uniformly from [100000, 999999].
func GenVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+100000, 10), nil
}

// VerificationExpiry returns the instant a code issued at issuedAt stops being valid.
func VerificationExpiry(issuedAt time.Time) time.Time {
	return issuedAt.Add(VerificationCodeTTL)
}

// IsExpired reports whether expiresAt has passed at now.
func IsExpired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

// CanReissue reports whether a new code may be sent given the last issue time.
func CanReissue(lastIssuedAt *time.Time, now time.Time) bool {
	if lastIssuedAt == nil {
		return true
	}
	return now.After(lastIssuedAt.Add(VerificationResendGap))
}

// GenResetToken returns 32 random bytes hex encoded.
func GenResetToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the digest stored in place of single-use tokens.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// TokenPrefix returns the first ten characters of a token followed by "...",
// the only part of a token that may appear in logs.
func TokenPrefix(token string) string {
	if len(token) <= 10 {
		return token + "..."
	}
	return token[:10] + "..."
}
