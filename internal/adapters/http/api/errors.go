package api

import (
	"errors"
	"fmt"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest     = errors.New("bad request")
	ErrIngestDisabled = errors.New("ingestion over HTTP is disabled")
)

// Wrap prefixes err with the failing operation.
func Wrap(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}

// NewKind returns an error of kind for op.
func NewKind(op string, kind error) error {
	return fmt.Errorf("%s: %w", op, kind)
}

// WrapKind tags err with kind so callers can match either. A cause that
// already is of kind is not tagged twice.
func WrapKind(op string, kind, err error) error {
	if errors.Is(err, kind) {
		return Wrap(op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, kind, err)
}
