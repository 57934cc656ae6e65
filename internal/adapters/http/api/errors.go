package api

import "errors"

// Sentinel kinds for API errors.
var (
	ErrNotReady = errors.New("backend not ready")
)
