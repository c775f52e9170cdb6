package overlay

import "errors"

// Sentinel kinds for overlay errors.
var (
	ErrNoDivision = errors.New("tournament has no matching division")
)
