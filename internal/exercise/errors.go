package exercise

import "errors"

var (
	// ErrUnsupportedCombination indicates no rhythm template table exists
	// for the requested difficulty and time signature.
	ErrUnsupportedCombination = errors.New("exercise: unsupported difficulty/time-signature combination")
)
