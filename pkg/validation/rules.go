package validation

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	MaxEmailLength = 254
	MaxInputLength = 1000
	// MaxPasswordBytes is the longest input bcrypt accepts.
	MaxPasswordBytes = 72
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// specialChars is the accepted special character set; comma and pipe are hex
// escaped because validator uses them as tag separators.
const specialChars = `!@#$%^&*()_+-=[]{};':"\0x7C0x2C.<>/?`

var passwordRules = []struct {
	tag string
	msg string
}{
	{"min=8", "Password must be at least 8 characters long"},
	{"containsany=ABCDEFGHIJKLMNOPQRSTUVWXYZ", "Password must contain at least one uppercase letter"},
	{"containsany=abcdefghijklmnopqrstuvwxyz", "Password must contain at least one lowercase letter"},
	{"containsany=0123456789", "Password must contain at least one number"},
	{"containsany=" + specialChars, "Password must contain at least one special character"},
	{"pwdbytes", PasswordTooLongMsg},
}

// PasswordTooLongMsg is reported for passwords bcrypt cannot hash.
const PasswordTooLongMsg = "Password must be at most 72 bytes long"

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	register(v)
	return v
}

// register installs the auth rules on v.
func register(v *validator.Validate) {
	_ = v.RegisterValidation("authemail", func(fl validator.FieldLevel) bool {
		return IsEmail(fl.Field().String())
	})
	// max= counts runes; bcrypt's limit is in bytes.
	_ = v.RegisterValidation("pwdbytes", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String()) <= MaxPasswordBytes
	})
	_ = v.RegisterValidation("verifycode", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return len(s) == 6 && strings.Trim(s, "0123456789") == ""
	})
	tags := make([]string, 0, len(passwordRules))
	for _, r := range passwordRules {
		tags = append(tags, r.tag)
	}
	v.RegisterAlias("strongpwd", strings.Join(tags, ","))
}

// IsEmail reports whether s looks like an address: something@something.tld
// and no longer than 254 characters.
func IsEmail(s string) bool {
	return len(s) <= MaxEmailLength && emailPattern.MatchString(s)
}

// PasswordStrength lists every rule p fails, in a stable order. An empty
// result means p is acceptable.
func PasswordStrength(p string) []string {
	var failed []string
	for _, r := range passwordRules {
		if err := validate.Var(p, r.tag); err != nil {
			failed = append(failed, r.msg)
		}
	}
	return failed
}

// IsVerificationCode reports whether s is a six digit code.
func IsVerificationCode(s string) bool {
	return validate.Var(s, "verifycode") == nil
}

var (
	angleBrackets = regexp.MustCompile(`[<>]`)
	jsProtocol    = regexp.MustCompile(`(?i)javascript:`)
	eventHandler  = regexp.MustCompile(`(?i)on\w+=`)
)

// Sanitize trims s, strips markup and script vectors and caps it at 1000
// bytes on a rune boundary. It is applied to names and emails, never to
// passwords.
func Sanitize(s string) string {
	s = strings.TrimSpace(s)
	s = angleBrackets.ReplaceAllString(s, "")
	s = jsProtocol.ReplaceAllString(s, "")
	s = eventHandler.ReplaceAllString(s, "")
	if len(s) <= MaxInputLength {
		return s
	}
	cut := MaxInputLength
	for cut > 0 && !utf8RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

func utf8RuneStart(b byte) bool { return b&0xC0 != 0x80 }
