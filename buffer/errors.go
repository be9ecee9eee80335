package buffer

import "errors"

var (
	// ErrInvalidDuration reports a negative or otherwise unusable time value.
	ErrInvalidDuration = errors.New("invalid duration")
	// ErrFormatMismatch reports an attempt to combine buffers of different formats.
	ErrFormatMismatch = errors.New("format mismatch")
	// ErrInvalidFormat reports an unsupported sample layout.
	ErrInvalidFormat = errors.New("invalid format")
	// ErrOutOfRange reports a slice or offset outside the buffer.
	ErrOutOfRange = errors.New("out of range")
)
