package upload

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks client-fault input rejected before any mutation.
	ErrValidation = errors.New("validation failed")
	// ErrPermissionDenied marks requests touching albums or keys the caller does not own.
	ErrPermissionDenied = errors.New("permission denied")

	ErrInvalidContentType = fmt.Errorf("%w: unsupported content type", ErrValidation)
	ErrTooLarge           = fmt.Errorf("%w: file too large", ErrValidation)
	ErrInvalidObjectKey   = fmt.Errorf("%w: invalid object_key", ErrValidation)

	ErrShareNotFound = errors.New("share not found")
	ErrShareExpired  = errors.New("share expired")
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
