package security

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/repository"
)

// TokenBlacklist revokes session tokens before their natural expiry.
type TokenBlacklist struct {
	store  repository.BlacklistStore
	logger *logrus.Logger
}

func NewTokenBlacklist(store repository.BlacklistStore, logger *logrus.Logger) *TokenBlacklist {
	return &TokenBlacklist{store: store, logger: logger}
}

// Add revokes token until expiresAt.
func (b *TokenBlacklist) Add(ctx context.Context, token string, expiresAt time.Time) error {
	return b.store.Add(ctx, token, expiresAt)
}

// Has reports whether token was revoked. A store failure counts as revoked so
// an unreachable backend never re-admits a logged-out token.
func (b *TokenBlacklist) Has(ctx context.Context, token string) bool {
	ok, err := b.store.Has(ctx, token)
	if err != nil {
		if b.logger != nil {
			b.logger.WithError(err).Warn("blacklist lookup failed; rejecting token")
		}
		return true
	}
	return ok
}

// Len is the number of revoked tokens still held, or -1 when the store is
// unreachable.
func (b *TokenBlacklist) Len(ctx context.Context) int {
	n, err := b.store.Len(ctx)
	if err != nil {
		return -1
	}
	return n
}
