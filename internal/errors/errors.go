package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a sidecar error code.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"
	ErrIO             ErrorCode = "IO_ERROR"
	ErrFormat         ErrorCode = "FORMAT_ERROR"    // archive or block framing
	ErrParse          ErrorCode = "PARSE_ERROR"     // CDXJ lines
	ErrDetection      ErrorCode = "DETECTION_ERROR" // recovered inside the classifier
	ErrCancelled      ErrorCode = "CANCELLED"
	ErrInternal       ErrorCode = "INTERNAL"
)

// SidecarError represents a structured error with code, message, and details.
type SidecarError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface.
func (e *SidecarError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *SidecarError) Unwrap() error {
	return e.Err
}

// NewInvalidRequest creates an error for invalid request parameters.
func NewInvalidRequest(msg string) *SidecarError {
	return &SidecarError{
		Code:    ErrInvalidRequest,
		Message: msg,
	}
}

// NewFileNotFound creates an error for a missing input file.
func NewFileNotFound(path string) *SidecarError {
	return &SidecarError{
		Code:    ErrFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewIO wraps a filesystem failure on path.
func NewIO(path string, err error) *SidecarError {
	return &SidecarError{
		Code:    ErrIO,
		Message: fmt.Sprintf("%s: %v", path, err),
		Details: map[string]any{"path": path},
		Err:     err,
	}
}

// NewFormat creates an error for malformed archive framing or metadata blocks.
// Offset is the byte offset of the offending record, or -1 when unknown.
func NewFormat(path string, offset int64, msg string) *SidecarError {
	details := map[string]any{"path": path}
	if offset >= 0 {
		details["offset"] = offset
		msg = fmt.Sprintf("%s (offset %d)", msg, offset)
	}
	return &SidecarError{
		Code:    ErrFormat,
		Message: msg,
		Details: details,
	}
}

// NewParse creates an error for a malformed index line.
func NewParse(path string, line int, msg string) *SidecarError {
	return &SidecarError{
		Code:    ErrParse,
		Message: fmt.Sprintf("%s:%d: %s", path, line, msg),
		Details: map[string]any{"path": path, "line": line},
	}
}

// NewDetection wraps a detector failure.
func NewDetection(detector string, err error) *SidecarError {
	return &SidecarError{
		Code:    ErrDetection,
		Message: fmt.Sprintf("%s detector failed: %v", detector, err),
		Details: map[string]any{"detector": detector},
		Err:     err,
	}
}

// NewCancelled creates an error for an operation stopped by its context.
func NewCancelled(operation string) *SidecarError {
	return &SidecarError{
		Code:    ErrCancelled,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates an error for unexpected internal failures.
func NewInternal(err error) *SidecarError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SidecarError{
		Code:    ErrInternal,
		Message: msg,
		Err:     err,
	}
}

// Is checks if err (or anything it wraps) is a SidecarError with the given code.
func Is(err error, code ErrorCode) bool {
	var sErr *SidecarError
	if stderrors.As(err, &sErr) {
		return sErr.Code == code
	}
	return false
}

// As is errors.As, re-exported so callers importing this package need not alias the standard one.
func As(err error, target any) bool {
	return stderrors.As(err, target)
}
