package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

const userColumns = `id, email, password_hash, name, is_email_verified,
	verification_code, verification_expires, verification_attempts, verification_sent_at,
	reset_token_hash, reset_expires, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func scanUser(row pgx.Row) (*entity.User, error) {
	u := &entity.User{}
	var code, resetHash *string
	if err := row.Scan(&u.ID, &u.Email, &u.Password, &u.Name, &u.IsVerified,
		&code, &u.VerificationExpires, &u.VerificationAttempts, &u.VerificationSentAt,
		&resetHash, &u.ResetExpires, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		// malformed ids cannot match a uuid primary key
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if code != nil {
		u.VerificationCode = *code
	}
	if resetHash != nil {
		u.ResetTokenHash = *resetHash
	}
	return u, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, name, is_email_verified,
			verification_code, verification_expires, verification_sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, u.Email, u.Password, u.Name, u.IsVerified,
		nullable(u.VerificationCode), u.VerificationExpires, u.VerificationSentAt)

	if err := row.Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (r *UserRepository) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	if tokenHash == "" {
		return nil, repository.ErrNotFound
	}
	return scanUser(r.pool.QueryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE reset_token_hash = $1 AND reset_expires > $2
	`, tokenHash, now))
}

func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	u.UpdatedAt = time.Now()

	res, err := r.pool.Exec(ctx, `
		UPDATE users
		SET email = $1, password_hash = $2, name = $3, is_email_verified = $4,
			verification_code = $5, verification_expires = $6, verification_attempts = $7,
			verification_sent_at = $8, reset_token_hash = $9, reset_expires = $10, updated_at = $11
		WHERE id = $12
	`, u.Email, u.Password, u.Name, u.IsVerified,
		nullable(u.VerificationCode), u.VerificationExpires, u.VerificationAttempts,
		u.VerificationSentAt, nullable(u.ResetTokenHash), u.ResetExpires, u.UpdatedAt, u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return repository.ErrEmailTaken
		}
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *UserRepository) SetVerificationCode(ctx context.Context, id, code string, sentAt, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET verification_code = $1, verification_sent_at = $2, verification_expires = $3,
			verification_attempts = 0, updated_at = now()
		WHERE id = $4
	`, code, sentAt, expires, id)
}

// IncrementVerificationAttempts bumps the counter in a single statement so
// concurrent wrong guesses are all counted.
func (r *UserRepository) IncrementVerificationAttempts(ctx context.Context, id string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		UPDATE users
		SET verification_attempts = verification_attempts + 1, updated_at = now()
		WHERE id = $1
		RETURNING verification_attempts
	`, id).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, repository.ErrNotFound
	}
	return n, err
}

func (r *UserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	return r.exec(ctx, `
		UPDATE users
		SET is_email_verified = TRUE, verification_code = NULL, verification_expires = NULL,
			verification_sent_at = NULL, verification_attempts = 0, updated_at = now()
		WHERE id = $1
	`, id)
}

func (r *UserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET reset_token_hash = $1, reset_expires = $2, updated_at = now()
		WHERE id = $3
	`, tokenHash, expires, id)
}

func (r *UserRepository) ResetPassword(ctx context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	return r.exec(ctx, `
		UPDATE users
		SET password_hash = $1, reset_token_hash = NULL, reset_expires = NULL, updated_at = now()
		WHERE id = $2 AND reset_token_hash = $3 AND reset_expires > $4
	`, passwordHash, id, tokenHash, now)
}

func (r *UserRepository) exec(ctx context.Context, sql string, args ...any) error {
	res, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
