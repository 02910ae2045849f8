package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotAuthenticated is returned when an operation needs a signed-in user.
	ErrNotAuthenticated = errors.New("not signed in")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("operation not allowed for this role")
	// ErrInvalidCredentials is the provider's answer to an unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid login credentials")
	// ErrWrongPassword indicates sign-up found an existing identity for the email.
	ErrWrongPassword = errors.New("wrong password")
	// ErrEmailNotConfirmed indicates the user has not followed the confirmation link.
	ErrEmailNotConfirmed = errors.New("email not confirmed")
	// ErrProfileNotFound is returned when no profile row exists for a user.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrQuizNotFound indicates the quiz could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrNoRows is returned by stores when a single-row lookup matched nothing.
	ErrNoRows = errors.New("no rows")
	// ErrMovieNotFound is returned when the movie database has no match for a title.
	ErrMovieNotFound = errors.New("movie not found")
	// ErrDistractorsExhausted is returned when not enough distinct wrong answers exist.
	ErrDistractorsExhausted = errors.New("could not generate enough distinct wrong answers")
)

// ValidationError carries per-field messages for inline form display.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError with a single field message.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// Add records a message for field, keeping the first message per field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, ok := e.Fields[field]; !ok {
		e.Fields[field] = message
	}
}

// Empty reports whether no field messages were recorded.
func (e *ValidationError) Empty() bool {
	return e == nil || len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// IsValidation unwraps err into a ValidationError when it is one.
func IsValidation(err error) (*ValidationError, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}
