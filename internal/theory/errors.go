package theory

import "errors"

var (
	// ErrNotFound indicates the requested catalog entity does not exist.
	ErrNotFound = errors.New("theory: not found")

	// ErrAmbiguous indicates a name lookup matched more than one entry.
	ErrAmbiguous = errors.New("theory: ambiguous name")

	// ErrOutOfRange indicates derived pitch arithmetic left the 1..88 keyboard.
	ErrOutOfRange = errors.New("theory: pitch out of range")

	// ErrUnsupportedCombination indicates a tonality/scale-mode pairing with
	// no authored pattern (e.g. a minor mode applied to a major tonality).
	ErrUnsupportedCombination = errors.New("theory: unsupported combination")
)
