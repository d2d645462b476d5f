// Package apperr provides the error taxonomy shared by the LMS clients,
// the git platform clients, and the bulk repository operations.
package apperr

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// base holds the fields common to all error kinds.
type base struct {
	message string
	err     error
}

func (b base) error() string {
	if b.err == nil {
		return b.message
	}
	return fmt.Sprintf("%s: %v", b.message, b.err)
}

// Unwrap exposes the underlying error to support errors.Is / errors.As.
func (b base) Unwrap() error {
	return b.err
}

// Validation reports input that violates a structural invariant, such as
// duplicate IDs, missing required CSV columns, or unresolved LMS member IDs.
type Validation struct {
	base
	Details []string
}

func (v Validation) Error() string {
	if len(v.Details) == 0 {
		return v.error()
	}
	return fmt.Sprintf("%s: %s", v.error(), strings.Join(v.Details, "; "))
}

// NewValidation creates a Validation error. Details list the individual
// findings and are joined into the message.
func NewValidation(message string, details ...string) Validation {
	return Validation{base: base{message: message}, Details: details}
}

// NotFound reports a referenced entity that does not exist, locally or
// upstream (HTTP 404).
type NotFound struct {
	base
}

func (n NotFound) Error() string { return n.error() }

func NewNotFound(message string, err ...error) NotFound {
	return NotFound{base: base{message: message, err: errors.Join(err...)}}
}

// Auth reports rejected credentials (HTTP 401/403, or a Moodle exception
// that maps to an authentication failure).
type Auth struct {
	base
}

func (a Auth) Error() string { return a.error() }

func NewAuth(message string, err ...error) Auth {
	return Auth{base: base{message: message, err: errors.Join(err...)}}
}

// RateLimit reports HTTP 429. RetryAfter is zero when the upstream did not
// send a Retry-After header. The HTTP client retries these internally before
// one ever surfaces to a caller.
type RateLimit struct {
	base
	RetryAfter time.Duration
}

func (r RateLimit) Error() string { return r.error() }

func NewRateLimit(message string, retryAfter time.Duration) RateLimit {
	return RateLimit{base: base{message: message}, RetryAfter: retryAfter}
}

// API reports any other upstream failure status. Body holds a preview of the
// response body for diagnostics.
type API struct {
	base
	Status int
	Body   string
}

func (a API) Error() string {
	return fmt.Sprintf("%s (status %d)", a.error(), a.Status)
}

func NewAPI(message string, status int, body string) API {
	return API{base: base{message: message}, Status: status, Body: body}
}

// InvalidURL reports a URL that could not be parsed or normalized, including
// a base URL whose platform type could not be detected.
type InvalidURL struct {
	base
}

func (i InvalidURL) Error() string { return i.error() }

func NewInvalidURL(message string, err ...error) InvalidURL {
	return InvalidURL{base: base{message: message, err: errors.Join(err...)}}
}

// File reports a filesystem failure (permission, missing parent, disk full).
type File struct {
	base
}

func (f File) Error() string { return f.error() }

func NewFile(message string, err ...error) File {
	return File{base: base{message: message, err: errors.Join(err...)}}
}

// Git reports a failed external git process.
type Git struct {
	base
}

func (g Git) Error() string { return g.error() }

func NewGit(message string, err ...error) Git {
	return Git{base: base{message: message, err: errors.Join(err...)}}
}

// Unexpected is the catch-all kind, carrying a human message.
type Unexpected struct {
	base
}

func (u Unexpected) Error() string { return u.error() }

func NewUnexpected(message string, err ...error) Unexpected {
	return Unexpected{base: base{message: message, err: errors.Join(err...)}}
}

// Category returns the short user-visible category for an error, used by the
// CLI when rendering failures.
func Category(err error) string {
	switch {
	case errors.As(err, &Validation{}):
		return "validation"
	case errors.As(err, &NotFound{}):
		return "not found"
	case errors.As(err, &Auth{}):
		return "auth"
	case errors.As(err, &RateLimit{}):
		return "rate limit"
	case errors.As(err, &API{}):
		return "api"
	case errors.As(err, &InvalidURL{}):
		return "invalid url"
	case errors.As(err, &File{}):
		return "file"
	case errors.As(err, &Git{}):
		return "git"
	default:
		return "error"
	}
}
