package staging

import (
	"errors"
	"fmt"
)

var (
	ErrExtensionNotAllowed  = errors.New("file extension not allowed")
	ErrFileTooLarge         = errors.New("file exceeds the maximum upload size")
	ErrForbidden            = errors.New("operation not permitted for this role")
	ErrDocumentNotFound     = errors.New("document not found in this session")
	ErrUnknownDocumentType  = errors.New("document type is not assigned to this module")
	ErrNothingToReplaceWith = errors.New("replacement file is required")
)

// ValidationError is a user-facing rejection of a selected file.
// It unwraps to ErrExtensionNotAllowed or ErrFileTooLarge.
type ValidationError struct {
	Filename string
	Message  string
	reason   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Filename, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.reason }

// NewValidationError builds a ValidationError for filename that unwraps to reason.
func NewValidationError(filename string, reason error, message string) *ValidationError {
	return &ValidationError{Filename: filename, Message: message, reason: reason}
}
