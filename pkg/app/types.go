package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/deploymenttheory/go-macfiles/internal/types"
	"github.com/deploymenttheory/go-macfiles/pkg/services"
)

// StoreTarget selects a store file and optionally one entry inside it
type StoreTarget struct {
	Path     string
	Filename string
}

// Validate ensures the store target is usable
func (st *StoreTarget) Validate() error {
	if strings.TrimSpace(st.Path) == "" {
		return NewError(ErrCodeInvalidInput, "store path is required", nil)
	}
	return nil
}

// String returns a string representation of the store target
func (st *StoreTarget) String() string {
	if st.Filename != "" {
		return fmt.Sprintf("%s (entry %q)", st.Path, st.Filename)
	}
	return st.Path
}

// ParseProperty validates a four character property code argument
func ParseProperty(s string) (types.FourCC, error) {
	code, err := types.ParseFourCC(s)
	if err != nil {
		return "", NewError(ErrCodeInvalidInput, fmt.Sprintf("invalid property code %q", s), err)
	}
	return code, nil
}

// CommonError represents application-level errors
type CommonError struct {
	Code    string
	Message string
	Cause   error
}

func (e *CommonError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CommonError) Unwrap() error {
	return e.Cause
}

// Common error codes
const (
	ErrCodeInvalidInput    = "INVALID_INPUT"
	ErrCodeFormatViolation = "FORMAT_VIOLATION"
	ErrCodeNotSupported    = "NOT_SUPPORTED"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeStoreAccess     = "STORE_ACCESS"
	ErrCodePermission      = "PERMISSION_DENIED"
	ErrCodeTimeout         = "TIMEOUT"
)

// NewError creates a new CommonError
func NewError(code, message string, cause error) *CommonError {
	return &CommonError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Classify wraps err in a CommonError whose code reflects the failure.
// CommonErrors pass through unchanged.
func Classify(message string, err error) error {
	if err == nil {
		return nil
	}
	var ce *CommonError
	if errors.As(err, &ce) {
		return err
	}

	code := ErrCodeStoreAccess
	switch {
	case errors.Is(err, services.ErrInvalidValue):
		code = ErrCodeInvalidInput
	case errors.Is(err, types.ErrFormat), errors.Is(err, types.ErrBlockNotFound), errors.Is(err, types.ErrOutOfRange):
		code = ErrCodeFormatViolation
	case errors.Is(err, types.ErrUnsupported):
		code = ErrCodeNotSupported
	case errors.Is(err, types.ErrKeyNotFound), errors.Is(err, fs.ErrNotExist):
		code = ErrCodeNotFound
	case errors.Is(err, fs.ErrPermission):
		code = ErrCodePermission
	case errors.Is(err, context.DeadlineExceeded):
		code = ErrCodeTimeout
	}
	return NewError(code, message, err)
}
