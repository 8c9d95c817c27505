package application

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/domain/repository"
	"github.com/exotic-fruits/auth-service/internal/security"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/mailer"
	"github.com/exotic-fruits/auth-service/pkg/validation"
)

const minResetPasswordLength = 6

// RequestMeta identifies the caller of an operation for rate limiting and audit.
type RequestMeta struct {
	IP        string
	UserAgent string
}

func (m RequestMeta) clientIP() string {
	if m.IP == "" {
		return "unknown"
	}
	return m.IP
}

// PublicUser is the user shape returned by signup, login and verification.
type PublicUser struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	IsEmailVerified bool   `json:"isEmailVerified"`
}

// CurrentUser is the profile returned for an authenticated session.
type CurrentUser struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SignupResult struct {
	Message              string
	User                 PublicUser
	RequiresVerification bool
}

// SessionResult is returned when an operation logs the user in.
type SessionResult struct {
	Message   string
	User      PublicUser
	Token     string
	ExpiresAt time.Time
}

func publicUser(u *entity.User) PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Email: u.Email, IsEmailVerified: u.IsVerified}
}

type AuthDeps struct {
	Users     repository.UserRepository
	Hasher    *helpers.PasswordHasher
	Tokens    *helpers.JWTManager
	Limiter   *security.RateLimiter
	Lockout   *security.LockoutTracker
	Blacklist *security.TokenBlacklist
	Audit     *security.AuditLogger
	Mail      mailer.Sender
	Logger    *logrus.Logger
	Now       func() time.Time

	// Overridable in tests.
	GenCode       func() (string, error)
	GenResetToken func() (string, error)
}

// AuthService implements signup, login, email verification, password reset
// and session handling on top of the credential store and security stores.
type AuthService struct {
	users     repository.UserRepository
	hasher    *helpers.PasswordHasher
	tokens    *helpers.JWTManager
	limiter   *security.RateLimiter
	lockout   *security.LockoutTracker
	blacklist *security.TokenBlacklist
	audit     *security.AuditLogger
	mail      mailer.Sender
	logger    *logrus.Logger
	now       func() time.Time

	genCode       func() (string, error)
	genResetToken func() (string, error)

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(d AuthDeps) *AuthService {
	s := &AuthService{
		users:         d.Users,
		hasher:        d.Hasher,
		tokens:        d.Tokens,
		limiter:       d.Limiter,
		lockout:       d.Lockout,
		blacklist:     d.Blacklist,
		audit:         d.Audit,
		mail:          d.Mail,
		logger:        d.Logger,
		now:           d.Now,
		genCode:       d.GenCode,
		genResetToken: d.GenResetToken,
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = helpers.NewDiscardLogger()
	}
	if s.genCode == nil {
		s.genCode = helpers.GenVerificationCode
	}
	if s.genResetToken == nil {
		s.genResetToken = helpers.GenResetToken
	}
	return s
}

func (s *AuthService) record(ctx context.Context, meta RequestMeta, action, userID string, details map[string]any) {
	s.audit.Log(ctx, entity.AuditEntry{
		Action:    action,
		UserID:    userID,
		IP:        meta.clientIP(),
		UserAgent: meta.UserAgent,
		Details:   details,
	})
}

func (s *AuthService) internal(op string, err error) error {
	helpers.LogError(s.logger, op+" failed", err, logrus.Fields{"op": op})
	return &Error{Kind: KindInternal, Message: MsgInternal, Err: err}
}

// allow consumes one slot of p for the caller and audits a rejection.
func (s *AuthService) allow(ctx context.Context, meta RequestMeta, p security.Policy, msg string) error {
	if s.limiter.Allow(ctx, p, meta.clientIP()) {
		return nil
	}
	s.record(ctx, meta, security.ActionRateLimitExceeded, "", map[string]any{"endpoint": p.Endpoint})
	return rateLimitedErr(msg)
}

func normalizeEmail(email string) string {
	return strings.ToLower(validation.Sanitize(email))
}

// compareDummy spends the same bcrypt work as a real comparison so unknown
// emails cannot be told apart by response time.
func (s *AuthService) compareDummy(password string) {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("dummy-password-for-timing")
	})
	if s.dummyHash != "" {
		_ = s.hasher.Compare(password, s.dummyHash)
	}
}

func (s *AuthService) issueSession(u *entity.User) (string, time.Time, error) {
	token, claims, err := s.tokens.Sign(helpers.SessionClaims{UserID: u.ID, Email: u.Email, Name: u.Name})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, claims.ExpiresAt, nil
}

// Signup registers an unverified account and mails its first verification code.
func (s *AuthService) Signup(ctx context.Context, meta RequestMeta, name, email, password string) (*SignupResult, error) {
	if err := s.allow(ctx, meta, security.SignupPolicy, MsgSignupRateLimited); err != nil {
		return nil, err
	}

	name = validation.Sanitize(name)
	email = normalizeEmail(email)
	if name == "" || email == "" || password == "" {
		return nil, validationErr(MsgSignupRequired)
	}
	if !validation.IsEmail(email) {
		return nil, validationErr(MsgInvalidEmail)
	}
	if failed := validation.PasswordStrength(password); len(failed) > 0 {
		return nil, validationErr(MsgPasswordPolicy + strings.Join(failed, ", "))
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		s.record(ctx, meta, security.ActionSignupFailed, "", map[string]any{"email": email, "reason": "user_already_exists"})
		return nil, validationErr(MsgUserExists)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, s.internal("signup", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, s.internal("signup", err)
	}
	code, err := s.genCode()
	if err != nil {
		return nil, s.internal("signup", err)
	}
	now := s.now()
	expires := helpers.VerificationExpiry(now)
	u := &entity.User{
		Email:               email,
		Password:            hash,
		Name:                name,
		VerificationCode:    code,
		VerificationExpires: &expires,
		VerificationSentAt:  &now,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			s.record(ctx, meta, security.ActionSignupFailed, "", map[string]any{"email": email, "reason": "user_already_exists"})
			return nil, validationErr(MsgUserExists)
		}
		return nil, s.internal("signup", err)
	}

	res := &SignupResult{Message: MsgSignupSuccess, User: publicUser(u), RequiresVerification: true}
	to := mailer.Recipient{Email: u.Email, Name: u.Name, IP: meta.clientIP()}
	if err := s.mail.SendVerificationEmail(ctx, to, code); err != nil {
		s.logger.WithError(err).WithField("user_id", u.ID).Warn("verification email not sent")
		s.record(ctx, meta, security.ActionSignupEmailFailed, u.ID, map[string]any{"email": email, "name": name})
		res.Message = MsgSignupEmailFailed
		return res, nil
	}
	s.record(ctx, meta, security.ActionSignupSuccess, u.ID, map[string]any{"email": email, "name": name})
	return res, nil
}

func (s *AuthService) loginFailed(ctx context.Context, meta RequestMeta, email, userID, reason string) error {
	count := s.lockout.RecordFailure(ctx, email)
	s.record(ctx, meta, security.ActionLoginFailed, userID, map[string]any{
		"email":        email,
		"reason":       reason,
		"attemptCount": count,
	})
	return unauthorizedErr(MsgInvalidCredentials)
}

// Login checks credentials and issues a session token for verified accounts.
// A locked account is rejected before the credential store is consulted.
func (s *AuthService) Login(ctx context.Context, meta RequestMeta, email, password string) (*SessionResult, error) {
	if err := s.allow(ctx, meta, security.LoginPolicy, MsgLoginRateLimited); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, validationErr(MsgLoginRequired)
	}
	if !validation.IsEmail(email) {
		return nil, validationErr(MsgInvalidEmail)
	}

	if remaining, locked := s.lockout.Check(ctx, email); locked {
		minutes := security.RemainingMinutes(remaining)
		s.record(ctx, meta, security.ActionAccountLockout, "", map[string]any{"email": email, "remainingMinutes": minutes})
		return nil, rateLimitedErr(fmt.Sprintf(MsgAccountLocked, minutes))
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.compareDummy(password)
		return nil, s.loginFailed(ctx, meta, email, "", "user_not_found")
	}
	if err != nil {
		return nil, s.internal("login", err)
	}
	if !s.hasher.Compare(password, u.Password) {
		return nil, s.loginFailed(ctx, meta, email, u.ID, "invalid_password")
	}

	if !u.IsVerified {
		s.record(ctx, meta, security.ActionLoginFailed, u.ID, map[string]any{"email": email, "reason": "email_not_verified"})
		pu := publicUser(u)
		return nil, &Error{Kind: KindUnauthorized, Message: MsgVerifyBeforeLogin, RequiresVerification: true, User: &pu}
	}

	s.lockout.Reset(ctx, email)
	token, exp, err := s.issueSession(u)
	if err != nil {
		return nil, s.internal("login", err)
	}
	s.record(ctx, meta, security.ActionLoginSuccess, u.ID, map[string]any{"email": email})
	return &SessionResult{Message: MsgLoginSuccess, User: publicUser(u), Token: token, ExpiresAt: exp}, nil
}

// VerifyEmail consumes a verification code and logs the user in.
func (s *AuthService) VerifyEmail(ctx context.Context, meta RequestMeta, email, code string) (*SessionResult, error) {
	if err := s.allow(ctx, meta, security.VerifyEmailPolicy, MsgVerifyRateLimited); err != nil {
		return nil, err
	}

	email = normalizeEmail(email)
	code = validation.Sanitize(code)
	if email == "" || code == "" {
		return nil, validationErr(MsgVerifyRequired)
	}
	if !validation.IsVerificationCode(code) {
		s.record(ctx, meta, security.ActionEmailVerificationFailed, "", map[string]any{"email": email, "reason": "malformed_code"})
		return nil, validationErr(MsgInvalidCode)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, meta, security.ActionEmailVerificationFailed, "", map[string]any{"email": email, "reason": "user_not_found"})
		return nil, validationErr(MsgVerifyInvalid)
	}
	if err != nil {
		return nil, s.internal("verify-email", err)
	}
	if u.IsVerified {
		return nil, validationErr(MsgAlreadyVerified)
	}
	if !u.HasPendingVerification() {
		s.record(ctx, meta, security.ActionEmailVerificationFailed, u.ID, map[string]any{"email": email, "reason": "no_verification_code"})
		return nil, validationErr(MsgNoActiveCode)
	}
	if helpers.IsExpired(*u.VerificationExpires, s.now()) {
		s.record(ctx, meta, security.ActionEmailVerificationFailed, u.ID, map[string]any{"email": email, "reason": "code_expired"})
		return nil, validationErr(MsgCodeExpired)
	}
	if u.VerificationAttempts >= helpers.MaxVerificationAttempts {
		s.record(ctx, meta, security.ActionEmailVerificationBlocked, u.ID, map[string]any{"email": email, "reason": "max_attempts_exceeded"})
		return nil, validationErr(MsgTooManyCodeAttempts)
	}
	if subtle.ConstantTimeCompare([]byte(u.VerificationCode), []byte(code)) != 1 {
		attempts, err := s.users.IncrementVerificationAttempts(ctx, u.ID)
		if err != nil {
			return nil, s.internal("verify-email", err)
		}
		s.record(ctx, meta, security.ActionEmailVerificationFailed, u.ID, map[string]any{"email": email, "reason": "invalid_code", "attempts": attempts})
		return nil, validationErr(MsgInvalidCode)
	}

	if err := s.users.MarkEmailVerified(ctx, u.ID); err != nil {
		return nil, s.internal("verify-email", err)
	}
	u.IsVerified = true
	s.record(ctx, meta, security.ActionEmailVerifiedSuccess, u.ID, map[string]any{"email": email})

	token, exp, err := s.issueSession(u)
	if err != nil {
		return nil, s.internal("verify-email", err)
	}
	return &SessionResult{Message: MsgEmailVerified, User: publicUser(u), Token: token, ExpiresAt: exp}, nil
}

// ResendVerification issues a fresh code. Apart from rate limiting, a missing
// email and a failed send, the reply is the same whatever the account state.
func (s *AuthService) ResendVerification(ctx context.Context, meta RequestMeta, email string) (string, error) {
	if err := s.allow(ctx, meta, security.ResendVerificationPolicy, MsgResendRateLimited); err != nil {
		return "", err
	}

	email = normalizeEmail(email)
	if email == "" {
		return "", validationErr(MsgEmailRequired)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, meta, security.ActionResendVerificationFailed, "", map[string]any{"email": email, "reason": "user_not_found"})
		return MsgResendGeneric, nil
	}
	if err != nil {
		return "", s.internal("resend-verification", err)
	}
	if u.IsVerified {
		s.record(ctx, meta, security.ActionResendVerificationFailed, u.ID, map[string]any{"email": email, "reason": "already_verified"})
		return MsgResendGeneric, nil
	}
	now := s.now()
	if !helpers.CanReissue(u.VerificationSentAt, now) {
		s.record(ctx, meta, security.ActionResendVerificationFailed, u.ID, map[string]any{"email": email, "reason": "cooldown"})
		return MsgResendGeneric, nil
	}

	code, err := s.genCode()
	if err != nil {
		return "", s.internal("resend-verification", err)
	}
	if err := s.users.SetVerificationCode(ctx, u.ID, code, now, helpers.VerificationExpiry(now)); err != nil {
		return "", s.internal("resend-verification", err)
	}

	to := mailer.Recipient{Email: u.Email, Name: u.Name, IP: meta.clientIP()}
	if err := s.mail.SendVerificationEmail(ctx, to, code); err != nil {
		helpers.LogError(s.logger, "verification email not sent", err, logrus.Fields{"user_id": u.ID})
		s.record(ctx, meta, security.ActionResendVerificationEmailFailed, u.ID, map[string]any{"email": email})
		return "", &Error{Kind: KindInternal, Message: MsgResendEmailFailed, Err: err}
	}
	s.record(ctx, meta, security.ActionResendVerificationSuccess, u.ID, map[string]any{"email": email})
	return MsgResendGeneric, nil
}

// ForgotPassword stores a reset token digest and mails the token. Unknown
// emails get the same reply as a successful send.
func (s *AuthService) ForgotPassword(ctx context.Context, meta RequestMeta, email string) (string, error) {
	if err := s.allow(ctx, meta, security.ForgotPasswordPolicy, MsgForgotRateLimited); err != nil {
		return "", err
	}

	email = normalizeEmail(email)
	if email == "" {
		return "", validationErr(MsgEmailRequired)
	}
	if !validation.IsEmail(email) {
		return "", validationErr(MsgInvalidEmail)
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, meta, security.ActionForgotPasswordAttempt, "", map[string]any{"email": email, "found": false})
		return MsgForgotGeneric, nil
	}
	if err != nil {
		return "", s.internal("forgot-password", err)
	}

	token, err := s.genResetToken()
	if err != nil {
		return "", s.internal("forgot-password", err)
	}
	if err := s.users.SetResetToken(ctx, u.ID, helpers.HashToken(token), s.now().Add(helpers.ResetTokenTTL)); err != nil {
		return "", s.internal("forgot-password", err)
	}

	to := mailer.Recipient{Email: u.Email, Name: u.Name, IP: meta.clientIP()}
	if err := s.mail.SendPasswordResetEmail(ctx, to, token); err != nil {
		helpers.LogError(s.logger, "password reset email not sent", err, logrus.Fields{"user_id": u.ID})
		s.record(ctx, meta, security.ActionForgotPasswordEmailFailed, u.ID, map[string]any{"email": email})
		return "", &Error{Kind: KindInternal, Message: MsgForgotEmailFailed, Err: err}
	}
	s.record(ctx, meta, security.ActionForgotPasswordSuccess, u.ID, map[string]any{"email": email})
	return MsgForgotGeneric, nil
}

// ResetPassword replaces the password of the account holding token.
func (s *AuthService) ResetPassword(ctx context.Context, meta RequestMeta, token, newPassword string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" || newPassword == "" {
		return "", validationErr(MsgResetRequired)
	}
	if utf8.RuneCountInString(newPassword) < minResetPasswordLength {
		return "", validationErr(MsgResetTooShort)
	}
	if len(newPassword) > validation.MaxPasswordBytes {
		return "", validationErr(validation.PasswordTooLongMsg)
	}

	digest := helpers.HashToken(token)
	u, err := s.users.GetByResetToken(ctx, digest, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, meta, security.ActionResetPasswordInvalidToken, "", map[string]any{"tokenProvided": true})
		return "", validationErr(MsgResetInvalidToken)
	}
	if err != nil {
		return "", s.internal("reset-password", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return "", s.internal("reset-password", err)
	}
	// The token is re-checked by the store; a concurrent reset that consumed
	// it first leaves nothing to update.
	if err := s.users.ResetPassword(ctx, u.ID, digest, hash, s.now()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.record(ctx, meta, security.ActionResetPasswordInvalidToken, u.ID, map[string]any{"tokenProvided": true, "reason": "token_consumed"})
			return "", validationErr(MsgResetInvalidToken)
		}
		return "", s.internal("reset-password", err)
	}
	s.record(ctx, meta, security.ActionResetPasswordSuccess, u.ID, map[string]any{"email": u.Email})
	return MsgResetSuccess, nil
}

// Logout revokes token until its natural expiry. Tokens that no longer
// verify need no revocation and logout still succeeds.
func (s *AuthService) Logout(ctx context.Context, meta RequestMeta, token string) (string, error) {
	claims, ok := s.tokens.Verify(token)
	if !ok {
		s.record(ctx, meta, security.ActionLogoutSuccess, "", map[string]any{"tokenBlacklisted": false})
		return MsgLoggedOut, nil
	}
	if err := s.blacklist.Add(ctx, token, claims.ExpiresAt); err != nil {
		return "", s.internal("logout", err)
	}
	s.record(ctx, meta, security.ActionLogoutSuccess, claims.UserID, map[string]any{"tokenBlacklisted": true})
	return MsgLoggedOut, nil
}

// Authenticate validates a bearer token for a protected call. Revoked tokens
// are reported separately from forged or expired ones.
func (s *AuthService) Authenticate(ctx context.Context, meta RequestMeta, token string) (helpers.SessionClaims, error) {
	if token == "" {
		return helpers.SessionClaims{}, unauthorizedErr(MsgNoToken)
	}
	if s.blacklist.Has(ctx, token) {
		s.record(ctx, meta, security.ActionBlacklistedTokenAccess, "", map[string]any{"token": helpers.TokenPrefix(token)})
		return helpers.SessionClaims{}, unauthorizedErr(MsgTokenInvalidated)
	}
	claims, ok := s.tokens.Verify(token)
	if !ok {
		s.record(ctx, meta, security.ActionInvalidTokenAccess, "", map[string]any{"token": helpers.TokenPrefix(token)})
		return helpers.SessionClaims{}, unauthorizedErr(MsgInvalidToken)
	}
	return claims, nil
}

// GetCurrentUser resolves token to the stored profile.
func (s *AuthService) GetCurrentUser(ctx context.Context, meta RequestMeta, token string) (*CurrentUser, error) {
	claims, err := s.Authenticate(ctx, meta, token)
	if err != nil {
		return nil, err
	}
	return s.Profile(ctx, meta, claims.UserID)
}

// Profile loads the user behind an already authenticated session.
func (s *AuthService) Profile(ctx context.Context, meta RequestMeta, userID string) (*CurrentUser, error) {
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		s.record(ctx, meta, security.ActionUserNotFound, "", map[string]any{"userId": userID})
		return nil, &Error{Kind: KindNotFound, Message: MsgUserNotFound}
	}
	if err != nil {
		return nil, s.internal("me", err)
	}
	s.record(ctx, meta, security.ActionUserProfileAccess, u.ID, map[string]any{"email": u.Email})
	return &CurrentUser{ID: u.ID, Name: u.Name, Email: u.Email}, nil
}
