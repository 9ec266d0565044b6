package relay

import "errors"

// Request errors.
var (
	// ErrMissingField means serial, location or type was absent or empty.
	ErrMissingField = errors.New("missing fields")

	// ErrInvalidFormat means the input had the wrong shape.
	ErrInvalidFormat = errors.New("invalid format")

	// ErrDeviceBlocked means the device is on the block list.
	ErrDeviceBlocked = errors.New("device blocked")
)
