package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrBackpressure     = errors.New("ingestion queue full")
	ErrMethodNotAllowed = errors.New("method not allowed")
)
