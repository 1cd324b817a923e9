package config

import (
	"errors"
	"fmt"
)

// Sentinel error kinds for this package. The specific kinds all wrap
// ErrInvalidConfig.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	ErrUnknownBackend  = fmt.Errorf("%w: unsupported database backend", ErrInvalidConfig)
	ErrUnknownWeekday  = fmt.Errorf("%w: unknown weekday", ErrInvalidConfig)
	ErrUnknownTimezone = fmt.Errorf("%w: unknown timezone", ErrInvalidConfig)
)
