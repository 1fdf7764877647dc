// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers. Every error that leaves the service
// layer carries one.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindUnsupportedFormat
	KindTransport
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindUnsupportedFormat:
		return "unsupported_format"
	case KindTransport:
		return "transport"
	default:
		return "internal"
	}
}

// AppError is a caller-visible error with a stable kind.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

func newf(kind Kind, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validation reports missing or malformed input.
func Validation(format string, args ...any) error {
	return newf(KindValidation, format, args...)
}

// NotFound reports a referenced entity that does not exist.
func NotFound(format string, args ...any) error {
	return newf(KindNotFound, format, args...)
}

// Conflict reports a uniqueness violation.
func Conflict(format string, args ...any) error {
	return newf(KindConflict, format, args...)
}

// UnsupportedFormat reports an upload whose extension is not recognised.
func UnsupportedFormat(format string, args ...any) error {
	return newf(KindUnsupportedFormat, format, args...)
}

// Transport wraps a mail transport failure.
func Transport(err error, format string, args ...any) error {
	return &AppError{Kind: KindTransport, Message: fmt.Sprintf(format, args...), Err: err}
}

// Wrap attaches a kind to an arbitrary error.
func Wrap(kind Kind, err error, format string, args ...any) error {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of the first AppError in err's chain, or
// KindInternal.
func KindOf(err error) Kind {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the status code the API responds with.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Sentinel errors shared across repositories.
var (
	ErrVersionConflict = errors.New("activity list was modified concurrently")
)

// NewCampaignNotFound is the not-found error for archive lookups.
func NewCampaignNotFound(id string) error {
	return NotFound("campaign with ID %s not found", id)
}

// NewListNotFound is the not-found error for activity list lookups.
func NewListNotFound(id string) error {
	return NotFound("activity list with ID %s not found", id)
}
