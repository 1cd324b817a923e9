package types

import "errors"

// ErrInvalidRecord marks a record rejected at the store boundary.
var ErrInvalidRecord = errors.New("invalid record")
