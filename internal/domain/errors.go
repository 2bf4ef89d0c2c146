package domain

import "errors"

var (
	// ErrMalformedRecord marks a row whose date or pixel payload cannot be parsed.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrInvalidThreshold marks a threshold pair outside [0,1] or with upper < lower.
	ErrInvalidThreshold = errors.New("invalid threshold")

	// ErrInvalidWindow marks a season window outside 1..53 or with end < start.
	ErrInvalidWindow = errors.New("invalid week window")
)
