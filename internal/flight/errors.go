package flight

import "errors"

// Domain errors for the control loop.
var (
	// ErrNoSample indicates no pose sample has been received yet.
	ErrNoSample = errors.New("flight: no pose sample available")
)
