package upstream

import "errors"

// Sentinel kinds for upstream errors.
var (
	ErrFetchFailed = errors.New("upstream fetch failed")
	ErrNotFound    = errors.New("not found")
)
