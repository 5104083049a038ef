package revsense

import "errors"

var (
	// ErrUnauthenticated is returned by protectors when the request carries
	// no acceptable session.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProtectorUnavailable is returned by protectors when their backing
	// service cannot be reached. The gate answers with 503 and still denies.
	ErrProtectorUnavailable = errors.New("protector unavailable")
	// ErrNilProtector is returned by Build for a production gate without a protector.
	ErrNilProtector = errors.New("production gate requires a protector")
	// ErrInvalidConfig wraps every configuration validation failure.
	ErrInvalidConfig = errors.New("invalid gate config")
	// ErrBuilderUsed is returned when Build is called twice on one builder.
	ErrBuilderUsed = errors.New("builder already used")
)
