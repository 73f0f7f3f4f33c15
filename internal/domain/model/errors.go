package model

import "errors"

// Sentinel kinds for domain validation errors.
var (
	ErrEventNotFound  = errors.New("event not found")
	ErrInvalidCountry = errors.New("invalid country code")
	ErrUnknownMetric  = errors.New("unknown metric")
	ErrInvalidWindow  = errors.New("invalid window")
	ErrInvalidDate    = errors.New("invalid date")
)
