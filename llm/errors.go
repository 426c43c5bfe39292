package llm

import (
	"errors"
	"fmt"
)

// ProviderError wraps a transport, auth or rate-limit failure reported by a
// backend.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// SchemaMismatchError reports model output that could not be decoded into
// the requested structure or failed its validation.
type SchemaMismatchError struct {
	Schema string
	Raw    string
	Err    error
}

func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("response does not match schema %s: %v", e.Schema, e.Err)
}

func (e *SchemaMismatchError) Unwrap() error {
	return e.Err
}

// IsSchemaMismatch reports whether err is (or wraps) a SchemaMismatchError.
func IsSchemaMismatch(err error) bool {
	var target *SchemaMismatchError
	return errors.As(err, &target)
}

// IsProviderError reports whether err is (or wraps) a ProviderError.
func IsProviderError(err error) bool {
	var target *ProviderError
	return errors.As(err, &target)
}
