package application

// User-facing messages. Clients match on some of these, so they only change
// together with the front end.
const (
	MsgInternal = "Internal server error"

	MsgSignupRateLimited  = "Too many signup attempts, please try again later."
	MsgSignupRequired     = "Name, email, and password are required"
	MsgInvalidEmail       = "Invalid email format"
	MsgPasswordPolicy     = "Password requirements not met: "
	MsgUserExists         = "User with this email already exists"
	MsgSignupSuccess      = "Account created successfully! Please check your email for a verification code."
	MsgSignupEmailFailed  = "Account created successfully, but there was an issue sending the verification email. Please use the resend option."
	MsgLoginRateLimited   = "Too many login attempts, please try again later."
	MsgLoginRequired      = "Email and password are required"
	MsgAccountLocked      = "Account temporarily locked. Try again in %d minutes."
	MsgInvalidCredentials = "Invalid email or password"
	MsgVerifyBeforeLogin  = "Please verify your email address before logging in"
	MsgLoginSuccess       = "Login successful"

	MsgVerifyRateLimited   = "Too many verification attempts, please try again later."
	MsgVerifyRequired      = "Email and verification code are required"
	MsgVerifyInvalid       = "Invalid verification request"
	MsgAlreadyVerified     = "Email is already verified"
	MsgNoActiveCode        = "No active verification code. Please request a new one."
	MsgCodeExpired         = "Verification code has expired. Please request a new one."
	MsgTooManyCodeAttempts = "Too many failed attempts. Please request a new verification code."
	MsgInvalidCode         = "Invalid verification code"
	MsgEmailVerified       = "Email verified successfully"

	MsgResendRateLimited = "Too many resend attempts, please try again later."
	MsgEmailRequired     = "Email is required"
	MsgResendGeneric     = "If an account with this email exists, a new verification code has been sent."
	MsgResendEmailFailed = "Failed to send verification email. Please try again later."

	MsgForgotRateLimited = "Too many password reset requests, please try again later."
	MsgForgotGeneric     = "If an account with this email exists, a password reset link has been sent."
	MsgForgotEmailFailed = "Failed to send password reset email"

	MsgResetRequired     = "Token and new password are required"
	MsgResetTooShort     = "Password must be at least 6 characters long"
	MsgResetInvalidToken = "Invalid or expired reset token"
	MsgResetSuccess      = "Password has been reset successfully"

	MsgLoggedOut = "Logged out successfully"

	MsgNoToken          = "No token provided"
	MsgTokenInvalidated = "Token has been invalidated"
	MsgInvalidToken     = "Invalid token"
	MsgUserNotFound     = "User not found"
)
