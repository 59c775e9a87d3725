package models

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyInput is returned when decoded media yields zero usable frames.
	ErrEmptyInput = errors.New("empty input: no usable frames")

	// ErrInvalidFeatureLength is returned when a feature vector cannot be packed in 10-bit blocks.
	ErrInvalidFeatureLength = errors.New("invalid feature length: must be a multiple of 10")

	// ErrContentNotFound is returned by stores for an unknown content id.
	ErrContentNotFound = errors.New("content not found")
)

// StoreError wraps a failure returned by the hash store. It is never retried.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// WrapStore returns nil for a nil err, otherwise a *StoreError for op.
func WrapStore(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
