package route

import "errors"

var (
	// ErrInvalidPattern is returned when a route pattern cannot be compiled.
	ErrInvalidPattern = errors.New("invalid route pattern")
	// ErrMatchTimeout is returned when evaluating a pattern exceeds its match timeout.
	ErrMatchTimeout = errors.New("route match timeout")
)
