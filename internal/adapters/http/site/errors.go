package site

import "errors"

// Sentinel kinds for site errors.
var (
	ErrTemplate = errors.New("site template parse failed")
	ErrRender   = errors.New("site page render failed")
	ErrContent  = errors.New("site content render failed")
)
