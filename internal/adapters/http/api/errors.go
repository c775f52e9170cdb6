package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrBadRequest           = errors.New("bad request")
	ErrMountFailed          = errors.New("overlay mount failed")
	ErrStreamingUnsupported = errors.New("response writer does not support streaming")
)
