package ingest

import "errors"

// Sentinel kinds for ingestion errors.
var (
	ErrUnknownKind = errors.New("unknown ingest kind")
	ErrUpstream    = errors.New("upstream request failed")
	ErrNoToken     = errors.New("radar api token not set")
)
