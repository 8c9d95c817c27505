package repository

import (
	"context"
	"errors"
	"time"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmailTaken = errors.New("email already registered")
)

// UserRepository defines the credential store operations used by the auth flows.
// Emails passed in are already normalized to lowercase.
type UserRepository interface {
	// Create inserts u and fills ID/CreatedAt/UpdatedAt. Returns ErrEmailTaken on a
	// uniqueness violation.
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	// GetByResetToken returns the user holding tokenHash with an expiry after now.
	GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error)
	// Update saves the full document.
	Update(ctx context.Context, u *entity.User) error

	SetVerificationCode(ctx context.Context, id, code string, sentAt, expires time.Time) error
	IncrementVerificationAttempts(ctx context.Context, id string) (int, error)
	// MarkEmailVerified sets the verified flag and clears every verification field.
	MarkEmailVerified(ctx context.Context, id string) error
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	// ResetPassword stores the new hash and clears the reset token fields, but
	// only while tokenHash is still on file and unexpired at now. Otherwise it
	// returns ErrNotFound, so a token is consumed at most once.
	ResetPassword(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error
}
