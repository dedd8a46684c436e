package objectstore

import (
	"errors"
	"fmt"
)

// Sentinel error kinds returned by Store operations. Callers should use
// errors.Is against these rather than inspecting error strings.
var (
	// ErrNotFound indicates the requested key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrPermissionDenied indicates the caller lacks access to the key.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransient indicates a retryable failure (network blip, throttling).
	ErrTransient = errors.New("transient object store error")

	// ErrFatal indicates a non-retryable failure.
	ErrFatal = errors.New("fatal object store error")
)

// OpError wraps an object-store error with the operation and key that
// produced it, following the wrapped-sentinel idiom used throughout this
// codebase's error types.
type OpError struct {
	Op  string // "read", "write", "list", "delete", "move"
	Key string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("objectstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// NewOpError wraps err (expected to be, or wrap, one of the sentinel kinds
// above) with operation and key context.
func NewOpError(op, key string, err error) error {
	return &OpError{Op: op, Key: key, Err: err}
}
