package application

import (
	"errors"
	"net/http"
)

type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthorized
	KindNotFound
	KindRateLimited
)

// Error is what every AuthService operation returns on failure. Message is
// safe to show to the caller; Err, when set, is only for logs.
type Error struct {
	Kind                 Kind
	Message              string
	RequiresVerification bool
	User                 *PublicUser
	Err                  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func validationErr(msg string) *Error   { return &Error{Kind: KindValidation, Message: msg} }
func unauthorizedErr(msg string) *Error { return &Error{Kind: KindUnauthorized, Message: msg} }
func rateLimitedErr(msg string) *Error  { return &Error{Kind: KindRateLimited, Message: msg} }

// StatusOf maps err to an HTTP status. Errors that are not *Error are 500.
func StatusOf(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MessageOf returns the caller-facing message for err. Errors that are not
// *Error never leak their text.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgInternal
}
