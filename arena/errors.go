package arena

import "github.com/rotisserie/eris"

var (
	// ErrNotFound is returned by lookups that distinguish absence from a zero value.
	ErrNotFound = eris.New("arena: element not found")

	// ErrCorrupt is returned when a serialized arena cannot be decoded.
	ErrCorrupt = eris.New("arena: corrupt buffer")
)
