package config

import "errors"

var (
	// ErrParsingConfig wraps env parsing failures, including missing required variables.
	ErrParsingConfig = errors.New("config: failed to parse environment")
	// ErrNilPointer is returned when Load receives a nil target.
	ErrNilPointer = errors.New("config: nil target")
)
