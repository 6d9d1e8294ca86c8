package tuner

import "errors"

var (
	// ErrNoPitchDetected reports audio from which no stable pitch
	// could be extracted, typically silence or noise.
	ErrNoPitchDetected = errors.New("no pitch detected")

	// ErrSessionNotFound reports an operation on a user with no
	// active streaming session.
	ErrSessionNotFound = errors.New("tuner session not found")
)
