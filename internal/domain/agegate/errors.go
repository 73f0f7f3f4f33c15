package agegate

import "errors"

// Sentinel kinds for classifier errors.
var (
	ErrNoSnapshot = errors.New("ranking snapshot not found")
)
