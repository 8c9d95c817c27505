package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/exotic-fruits/auth-service/internal/domain/entity"
	"github.com/exotic-fruits/auth-service/internal/infrastructure/memory"
	"github.com/exotic-fruits/auth-service/internal/security"
	"github.com/exotic-fruits/auth-service/pkg/helpers"
	"github.com/exotic-fruits/auth-service/pkg/mailer"
	"github.com/exotic-fruits/auth-service/pkg/validation"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// stubMail records the last code and token mailed to each address.
type stubMail struct {
	mu     sync.Mutex
	codes  map[string]string
	tokens map[string]string
	sent   int
	fail   error
}

func newStubMail() *stubMail {
	return &stubMail{codes: map[string]string{}, tokens: map[string]string{}}
}

func (m *stubMail) SendVerificationEmail(_ context.Context, to mailer.Recipient, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent++
	m.codes[to.Email] = code
	return nil
}

func (m *stubMail) SendPasswordResetEmail(_ context.Context, to mailer.Recipient, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.sent++
	m.tokens[to.Email] = token
	return nil
}

func (m *stubMail) code(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[email]
}

func (m *stubMail) token(email string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens[email]
}

// countingUsers counts email lookups on top of the in-memory store.
type countingUsers struct {
	*memory.UserRepository
	mu      sync.Mutex
	lookups int
}

func (r *countingUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	r.lookups++
	r.mu.Unlock()
	return r.UserRepository.GetByEmail(ctx, email)
}

func (r *countingUsers) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookups
}

type fixture struct {
	svc   *AuthService
	clock *fakeClock
	mail  *stubMail
	users *countingUsers
	audit *security.AuditLogger
	ips   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{t: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	users := &countingUsers{UserRepository: memory.NewUserRepository(clock.Now)}
	mail := newStubMail()
	logger := helpers.NewDiscardLogger()
	tokens := helpers.NewJWTManager("test-secret", time.Hour)
	tokens.Now = clock.Now
	audit := security.NewAuditLogger(0, nil, clock.Now)

	svc := NewAuthService(AuthDeps{
		Users:     users,
		Hasher:    helpers.NewPasswordHasher(bcrypt.MinCost),
		Tokens:    tokens,
		Limiter:   security.NewRateLimiter(memory.NewRateLimitStore(clock.Now), logger),
		Lockout:   security.NewLockoutTracker(memory.NewLockoutStore(), logger, clock.Now),
		Blacklist: security.NewTokenBlacklist(memory.NewBlacklistStore(0, 0, clock.Now), logger),
		Audit:     audit,
		Mail:      mail,
		Logger:    logger,
		Now:       clock.Now,
	})
	return &fixture{svc: svc, clock: clock, mail: mail, users: users, audit: audit}
}

// meta hands out a fresh client IP so per-IP limits stay out of the way.
func (f *fixture) meta() RequestMeta {
	f.ips++
	return RequestMeta{IP: fmt.Sprintf("10.0.0.%d", f.ips), UserAgent: "test"}
}

func (f *fixture) verifiedUser(t *testing.T, name, email, password string) *SessionResult {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), name, email, password)
	require.NoError(t, err)
	res, err := f.svc.VerifyEmail(ctx, f.meta(), email, f.mail.code(email))
	require.NoError(t, err)
	return res
}

func requireAppError(t *testing.T, err error, kind Kind, msg string) *Error {
	t.Helper()
	var appErr *Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, kind, appErr.Kind)
	assert.Equal(t, msg, appErr.Message)
	return appErr
}

func TestSignupThenVerifyIssuesSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.Signup(ctx, f.meta(), "Jane", "  Jane@X.com ", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, MsgSignupSuccess, res.Message)
	assert.True(t, res.RequiresVerification)
	assert.Equal(t, "jane@x.com", res.User.Email)
	assert.False(t, res.User.IsEmailVerified)
	assert.NotEmpty(t, res.User.ID)

	code := f.mail.code("jane@x.com")
	require.Len(t, code, 6)

	session, err := f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", code)
	require.NoError(t, err)
	assert.Equal(t, MsgEmailVerified, session.Message)
	assert.True(t, session.User.IsEmailVerified)
	assert.NotEmpty(t, session.Token)

	stored, err := f.users.UserRepository.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.True(t, stored.IsVerified)
	assert.Empty(t, stored.VerificationCode)
	assert.NotEqual(t, "Abcdef1!", stored.Password)

	_, err = f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", code)
	requireAppError(t, err, KindValidation, MsgAlreadyVerified)

	assert.Len(t, f.audit.ByAction(security.ActionSignupSuccess), 1)
	assert.Len(t, f.audit.ByAction(security.ActionEmailVerifiedSuccess), 1)
}

func TestSignupValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, f.meta(), "", "jane@x.com", "Abcdef1!")
	requireAppError(t, err, KindValidation, MsgSignupRequired)

	_, err = f.svc.Signup(ctx, f.meta(), "Jane", "not-an-email", "Abcdef1!")
	requireAppError(t, err, KindValidation, MsgInvalidEmail)

	_, err = f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "abc")
	requireAppError(t, err, KindValidation, MsgPasswordPolicy+
		"Password must be at least 8 characters long, "+
		"Password must contain at least one uppercase letter, "+
		"Password must contain at least one number, "+
		"Password must contain at least one special character")

	_, err = f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)
	_, err = f.svc.Signup(ctx, f.meta(), "Other", "JANE@x.com", "Abcdef1!")
	requireAppError(t, err, KindValidation, MsgUserExists)
	assert.Len(t, f.audit.ByAction(security.ActionSignupFailed), 1)
}

func TestSignupMailFailureStillCreatesAccount(t *testing.T) {
	f := newFixture(t)
	f.mail.fail = errors.New("smtp down")

	res, err := f.svc.Signup(context.Background(), f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, MsgSignupEmailFailed, res.Message)
	assert.Len(t, f.audit.ByAction(security.ActionSignupEmailFailed), 1)

	_, err = f.users.UserRepository.GetByEmail(context.Background(), "jane@x.com")
	assert.NoError(t, err)
}

func TestSignupRateLimitIsAudited(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	meta := RequestMeta{IP: "203.0.113.9"}

	for i := 0; i < security.SignupPolicy.Max; i++ {
		_, err := f.svc.Signup(ctx, meta, "Jane", fmt.Sprintf("jane%d@x.com", i), "Abcdef1!")
		require.NoError(t, err)
	}
	_, err := f.svc.Signup(ctx, meta, "Jane", "late@x.com", "Abcdef1!")
	requireAppError(t, err, KindRateLimited, MsgSignupRateLimited)
	assert.Equal(t, 429, StatusOf(err))

	entries := f.audit.ByAction(security.ActionRateLimitExceeded)
	require.Len(t, entries, 1)
	assert.Equal(t, "signup", entries[0].Details["endpoint"])
	assert.Equal(t, "203.0.113.9", entries[0].IP)
}

func TestLoginLockoutAfterFiveFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	for i := 0; i < security.LockoutThreshold; i++ {
		_, err := f.svc.Login(ctx, f.meta(), "jane@x.com", "wrong")
		requireAppError(t, err, KindUnauthorized, MsgInvalidCredentials)
	}
	failures := f.audit.ByAction(security.ActionLoginFailed)
	require.Len(t, failures, security.LockoutThreshold)
	assert.Equal(t, security.LockoutThreshold, failures[len(failures)-1].Details["attemptCount"])

	before := f.users.count()
	_, err := f.svc.Login(ctx, f.meta(), "jane@x.com", "Abcdef1!")
	requireAppError(t, err, KindRateLimited, "Account temporarily locked. Try again in 15 minutes.")
	assert.Equal(t, before, f.users.count(), "locked login must not reach the credential store")
	assert.Len(t, f.audit.ByAction(security.ActionAccountLockout), 1)

	f.clock.Advance(security.LockoutDuration + time.Second)
	res, err := f.svc.Login(ctx, f.meta(), "jane@x.com", "Abcdef1!")
	require.NoError(t, err)
	assert.Equal(t, MsgLoginSuccess, res.Message)
	assert.NotEmpty(t, res.Token)

	// success clears the counter
	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", "wrong")
	require.Error(t, err)
	last := f.audit.ByAction(security.ActionLoginFailed)
	assert.Equal(t, 1, last[len(last)-1].Details["attemptCount"])
}

func TestLoginUnknownEmailLooksLikeWrongPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	_, errUnknown := f.svc.Login(ctx, f.meta(), "ghost@x.com", "Abcdef1!")
	_, errWrong := f.svc.Login(ctx, f.meta(), "jane@x.com", "Abcdef1?")
	requireAppError(t, errUnknown, KindUnauthorized, MsgInvalidCredentials)
	requireAppError(t, errWrong, KindUnauthorized, MsgInvalidCredentials)

	reasons := map[any]bool{}
	for _, e := range f.audit.ByAction(security.ActionLoginFailed) {
		reasons[e.Details["reason"]] = true
	}
	assert.True(t, reasons["user_not_found"])
	assert.True(t, reasons["invalid_password"])
}

func TestLoginUnverifiedRequiresVerification(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", "Abcdef1!")
	appErr := requireAppError(t, err, KindUnauthorized, MsgVerifyBeforeLogin)
	assert.True(t, appErr.RequiresVerification)
	require.NotNil(t, appErr.User)
	assert.Equal(t, "jane@x.com", appErr.User.Email)
	assert.False(t, appErr.User.IsEmailVerified)
}

func TestVerifyEmailAttemptCapAndResend(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)
	code := f.mail.code("jane@x.com")
	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	for i := 0; i < helpers.MaxVerificationAttempts; i++ {
		_, err := f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", wrong)
		requireAppError(t, err, KindValidation, MsgInvalidCode)
	}
	_, err = f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", code)
	requireAppError(t, err, KindValidation, MsgTooManyCodeAttempts)
	assert.Len(t, f.audit.ByAction(security.ActionEmailVerificationBlocked), 1)

	// inside the resend gap nothing is mailed but the reply is unchanged
	sent := f.mail.sent
	msg, err := f.svc.ResendVerification(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgResendGeneric, msg)
	assert.Equal(t, sent, f.mail.sent)

	f.clock.Advance(helpers.VerificationResendGap + time.Second)
	msg, err = f.svc.ResendVerification(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgResendGeneric, msg)
	assert.Equal(t, sent+1, f.mail.sent)

	session, err := f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", f.mail.code("jane@x.com"))
	require.NoError(t, err)
	assert.True(t, session.User.IsEmailVerified)
}

func TestVerifyEmailExpiredCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)

	f.clock.Advance(helpers.VerificationCodeTTL + time.Second)
	_, err = f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", f.mail.code("jane@x.com"))
	requireAppError(t, err, KindValidation, MsgCodeExpired)

	_, err = f.svc.VerifyEmail(ctx, f.meta(), "ghost@x.com", "123456")
	requireAppError(t, err, KindValidation, MsgVerifyInvalid)
}

func TestResendVerificationGenericReplies(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	unknown, err := f.svc.ResendVerification(ctx, f.meta(), "ghost@x.com")
	require.NoError(t, err)
	verified, err := f.svc.ResendVerification(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgResendGeneric, unknown)
	assert.Equal(t, unknown, verified)

	_, err = f.svc.ResendVerification(ctx, f.meta(), "  ")
	requireAppError(t, err, KindValidation, MsgEmailRequired)
}

func TestForgotPasswordSameReplyForUnknownAndKnown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	unknown, err := f.svc.ForgotPassword(ctx, f.meta(), "unknown@x.com")
	require.NoError(t, err)
	known, err := f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, unknown, known)
	assert.Equal(t, MsgForgotGeneric, known)
	assert.NotEmpty(t, f.mail.token("jane@x.com"))
	assert.Empty(t, f.mail.token("unknown@x.com"))

	f.mail.fail = errors.New("smtp down")
	_, err = f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	requireAppError(t, err, KindInternal, MsgForgotEmailFailed)
	assert.Equal(t, 500, StatusOf(err))
	assert.Equal(t, MsgForgotEmailFailed, MessageOf(err))
	assert.Len(t, f.audit.ByAction(security.ActionForgotPasswordEmailFailed), 1)

	// unknown accounts never reach the mailer
	msg, err := f.svc.ForgotPassword(ctx, f.meta(), "unknown@x.com")
	require.NoError(t, err)
	assert.Equal(t, MsgForgotGeneric, msg)
}

func TestResendVerificationMailFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)

	f.clock.Advance(helpers.VerificationResendGap + time.Second)
	f.mail.fail = errors.New("smtp down")
	_, err = f.svc.ResendVerification(ctx, f.meta(), "jane@x.com")
	requireAppError(t, err, KindInternal, MsgResendEmailFailed)
	assert.Equal(t, 500, StatusOf(err))
	assert.Equal(t, MsgResendEmailFailed, MessageOf(err))
	assert.Len(t, f.audit.ByAction(security.ActionResendVerificationEmailFailed), 1)
	assert.Empty(t, f.audit.ByAction(security.ActionResendVerificationSuccess))
}

func TestPasswordsBeyondBcryptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	long := "Aa1!" + strings.Repeat("x", 76)
	require.Len(t, long, 80)

	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", long)
	requireAppError(t, err, KindValidation, MsgPasswordPolicy+validation.PasswordTooLongMsg)

	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")
	_, err = f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	token := f.mail.token("jane@x.com")

	_, err = f.svc.ResetPassword(ctx, f.meta(), token, long)
	requireAppError(t, err, KindValidation, validation.PasswordTooLongMsg)

	// the token survives the rejected attempt
	exact := "Aa1!" + strings.Repeat("x", 68)
	_, err = f.svc.ResetPassword(ctx, f.meta(), token, exact)
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", exact)
	require.NoError(t, err)
}

// resetBarrier holds every reset-token lookup until n callers have passed it.
type resetBarrier struct {
	*countingUsers
	wg sync.WaitGroup
}

func (r *resetBarrier) GetByResetToken(ctx context.Context, tokenHash string, now time.Time) (*entity.User, error) {
	u, err := r.countingUsers.GetByResetToken(ctx, tokenHash, now)
	r.wg.Done()
	r.wg.Wait()
	return u, err
}

func TestResetPasswordConcurrentUseOfOneToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")
	_, err := f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	token := f.mail.token("jane@x.com")

	users := &resetBarrier{countingUsers: f.users}
	users.wg.Add(2)
	f.svc.users = users

	passwords := []string{"NewPass1!", "NewPass2!"}
	errs := make([]error, len(passwords))
	var wg sync.WaitGroup
	for i, pw := range passwords {
		wg.Add(1)
		go func(i int, pw string) {
			defer wg.Done()
			_, errs[i] = f.svc.ResetPassword(ctx, RequestMeta{IP: fmt.Sprintf("10.9.0.%d", i)}, token, pw)
		}(i, pw)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "token consumed twice")
			winner = i
			continue
		}
		requireAppError(t, err, KindValidation, MsgResetInvalidToken)
	}
	require.NotEqual(t, -1, winner)

	f.svc.users = f.users
	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", passwords[winner])
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", passwords[1-winner])
	requireAppError(t, err, KindUnauthorized, MsgInvalidCredentials)
}

func TestVerifyEmailRejectsMalformedCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.Signup(ctx, f.meta(), "Jane", "jane@x.com", "Abcdef1!")
	require.NoError(t, err)

	lookups := f.users.count()
	for _, code := range []string{"12345", "1234567", "12a456"} {
		_, err := f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", code)
		requireAppError(t, err, KindValidation, MsgInvalidCode)
	}
	assert.Equal(t, lookups, f.users.count())

	u, err := f.users.UserRepository.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Zero(t, u.VerificationAttempts)

	_, err = f.svc.VerifyEmail(ctx, f.meta(), "jane@x.com", f.mail.code("jane@x.com"))
	require.NoError(t, err)
}

func TestResetPasswordFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	_, err := f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	token := f.mail.token("jane@x.com")

	_, err = f.svc.ResetPassword(ctx, f.meta(), token, "short")
	requireAppError(t, err, KindValidation, MsgResetTooShort)

	msg, err := f.svc.ResetPassword(ctx, f.meta(), token, "NewPass1!")
	require.NoError(t, err)
	assert.Equal(t, MsgResetSuccess, msg)

	// single use
	_, err = f.svc.ResetPassword(ctx, f.meta(), token, "NewPass2!")
	requireAppError(t, err, KindValidation, MsgResetInvalidToken)

	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", "Abcdef1!")
	requireAppError(t, err, KindUnauthorized, MsgInvalidCredentials)
	_, err = f.svc.Login(ctx, f.meta(), "jane@x.com", "NewPass1!")
	require.NoError(t, err)
}

func TestResetPasswordExpiredTokenLeavesHash(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	_, err := f.svc.ForgotPassword(ctx, f.meta(), "jane@x.com")
	require.NoError(t, err)
	before, err := f.users.UserRepository.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)

	f.clock.Advance(helpers.ResetTokenTTL + time.Minute)
	_, err = f.svc.ResetPassword(ctx, f.meta(), f.mail.token("jane@x.com"), "NewPass1!")
	requireAppError(t, err, KindValidation, MsgResetInvalidToken)

	after, err := f.users.UserRepository.GetByEmail(ctx, "jane@x.com")
	require.NoError(t, err)
	assert.Equal(t, before.Password, after.Password)
	assert.Len(t, f.audit.ByAction(security.ActionResetPasswordInvalidToken), 1)
}

func TestLogoutRevokesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session := f.verifiedUser(t, "Jane", "jane@x.com", "Abcdef1!")

	me, err := f.svc.GetCurrentUser(ctx, f.meta(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, &CurrentUser{ID: session.User.ID, Name: "Jane", Email: "jane@x.com"}, me)

	msg, err := f.svc.Logout(ctx, f.meta(), session.Token)
	require.NoError(t, err)
	assert.Equal(t, MsgLoggedOut, msg)
	logouts := f.audit.ByAction(security.ActionLogoutSuccess)
	require.Len(t, logouts, 1)
	assert.Equal(t, session.User.ID, logouts[0].UserID)
	assert.Equal(t, true, logouts[0].Details["tokenBlacklisted"])

	_, err = f.svc.GetCurrentUser(ctx, f.meta(), session.Token)
	requireAppError(t, err, KindUnauthorized, MsgTokenInvalidated)
	assert.Len(t, f.audit.ByAction(security.ActionBlacklistedTokenAccess), 1)
}

func TestAuthenticateRejectsMissingAndForgedTokens(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Authenticate(ctx, f.meta(), "")
	requireAppError(t, err, KindUnauthorized, MsgNoToken)

	_, err = f.svc.Authenticate(ctx, f.meta(), "not.a.jwt")
	requireAppError(t, err, KindUnauthorized, MsgInvalidToken)
	assert.Len(t, f.audit.ByAction(security.ActionInvalidTokenAccess), 1)

	msg, err := f.svc.Logout(ctx, f.meta(), "not.a.jwt")
	require.NoError(t, err)
	assert.Equal(t, MsgLoggedOut, msg)
}

func TestEmptyIPIsRecordedAsUnknown(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.ForgotPassword(context.Background(), RequestMeta{}, "ghost@x.com")
	require.NoError(t, err)

	entries := f.audit.Entries()
	require.NotEmpty(t, entries)
	assert.Equal(t, "unknown", entries[len(entries)-1].IP)
}
