package rankdiff

import "errors"

// Sentinel kinds for snapshot comparison errors.
var (
	ErrNoSnapshot = errors.New("ranking snapshot not found")
)
