package helpers

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 7 * 24 * time.Hour

// JWTManager signs and verifies session tokens with a single HMAC secret.
type JWTManager struct {
	Secret []byte
	TTL    time.Duration
	Now    func() time.Time
}

func NewJWTManager(secret string, ttl time.Duration) *JWTManager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &JWTManager{Secret: []byte(secret), TTL: ttl, Now: time.Now}
}

// SessionClaims is the identity carried by a session token.
type SessionClaims struct {
	UserID    string
	Email     string
	Name      string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

var errUnexpectedMethod = errors.New("unexpected signing method")

// Sign issues a token for the identity in c. IssuedAt and ExpiresAt are
// filled from the manager's clock and TTL.
func (m *JWTManager) Sign(c SessionClaims) (string, SessionClaims, error) {
	now := m.Now().Truncate(time.Second)
	c.IssuedAt = now
	c.ExpiresAt = now.Add(m.TTL)
	claims := &tokenClaims{
		UserID: c.UserID,
		Email:  c.Email,
		Name:   c.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(c.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(c.ExpiresAt),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := t.SignedString(m.Secret)
	if err != nil {
		return "", SessionClaims{}, err
	}
	return s, c, nil
}

// Verify decodes token. ok is false for tampered, expired, malformed or
// incomplete tokens alike; callers never see why.
func (m *JWTManager) Verify(token string) (SessionClaims, bool) {
	if token == "" {
		return SessionClaims{}, false
	}
	claims := &tokenClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedMethod
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(m.Now), jwt.WithExpirationRequired(), jwt.WithIssuedAt())
	if err != nil || !tkn.Valid {
		return SessionClaims{}, false
	}
	if claims.UserID == "" || claims.Email == "" || claims.ExpiresAt == nil || claims.IssuedAt == nil {
		return SessionClaims{}, false
	}
	return SessionClaims{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Name:      claims.Name,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, true
}
