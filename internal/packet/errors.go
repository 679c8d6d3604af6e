package packet

import "errors"

// Error classes shared by the Binary8 codec and the structures carried in it.
// Concrete errors wrap one of these; test with errors.Is.
var (
	// ErrTruncated: fewer bytes available than a declared length requires.
	// Retrying with more input may succeed.
	ErrTruncated = errors.New("truncated")

	// ErrCorruptData: checksum mismatch. The decoded value is still returned;
	// the caller decides whether to reject it.
	ErrCorruptData = errors.New("corrupt data")

	// ErrMalformedStructure: declared counts do not fit the buffer, or a
	// structure tag was not recognised.
	ErrMalformedStructure = errors.New("malformed structure")

	// ErrInvariantViolation: encode-time input is inconsistent with itself.
	ErrInvariantViolation = errors.New("invariant violation")
)
