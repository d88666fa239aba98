package tlcache

import (
	"errors"
	"fmt"
)

// StoreError indicates the backing store failed to answer (store unavailable).
// It is never retried by the repository.
type StoreError struct {
	Op    string // Store operation: "get", "put", "forever", "forget", "members", ...
	Key   string // Store key the operation targeted
	Cause error
}

func (e *StoreError) Error() string {
	if e.Key != "" {
		return fmt.Sprintf("store error: %s %q: %v", e.Op, e.Key, e.Cause)
	}
	return fmt.Sprintf("store error: %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error {
	return e.Cause
}

// InvalidArgumentError indicates malformed input. No store interaction is
// attempted when it is returned.
type InvalidArgumentError struct {
	Field   string
	Message string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %s", e.Field, e.Message)
}

// LockError indicates the registry lock could not be acquired.
type LockError struct {
	Name  string
	Cause error
}

func (e *LockError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("lock error: %s: %v", e.Name, e.Cause)
	}
	return fmt.Sprintf("lock error: %s", e.Name)
}

func (e *LockError) Unwrap() error {
	return e.Cause
}

// CodecError indicates a payload could not be encoded or decoded.
type CodecError struct {
	Message string
	Cause   error
}

func (e *CodecError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("codec error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("codec error: %s", e.Message)
}

func (e *CodecError) Unwrap() error {
	return e.Cause
}

// IsStoreUnavailable reports whether err is (or wraps) a StoreError.
func IsStoreUnavailable(err error) bool {
	var storeErr *StoreError
	return errors.As(err, &storeErr)
}

// IsInvalidArgument reports whether err is (or wraps) an InvalidArgumentError.
func IsInvalidArgument(err error) bool {
	var argErr *InvalidArgumentError
	return errors.As(err, &argErr)
}
