package stats

import "errors"

// Sentinel kinds for stats errors.
var (
	ErrUnknownDimension = errors.New("unknown sort dimension")
)
