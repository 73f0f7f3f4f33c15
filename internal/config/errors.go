package config

import (
	"errors"
)

// Sentinel errors callers can match with errors.Is.
var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrLoadConfig wraps provider and unmarshal failures.
	ErrLoadConfig = errors.New("load config failed")
)
