package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound           = errors.New("not found")
	ErrUnsupportedBackend = errors.New("unsupported database backend")
	ErrMigrate            = errors.New("migration failed")
	ErrClosed             = errors.New("store closed")
)
