package p9wire

import "errors"

// Sentinel codec errors. Wrapped with context via fmt.Errorf("...: %w", ...)
// at the call site so callers can still errors.Is against these.
var (
	// ErrUnexpectedEOF is returned when a buffer is shorter than a
	// field it is asked to decode.
	ErrUnexpectedEOF = errors.New("p9wire: unexpected end of message")

	// ErrInvalidUTF8 is returned when a length-prefixed string does
	// not contain valid UTF-8.
	ErrInvalidUTF8 = errors.New("p9wire: invalid utf-8 in string field")

	// ErrEncodeOverflow is returned when a string or vector is too
	// long to fit in its wire-format length prefix.
	ErrEncodeOverflow = errors.New("p9wire: value too large to encode")

	// ErrTrailingBytes is returned when a decode leaves unconsumed
	// bytes behind after the declared size of a frame or vector.
	ErrTrailingBytes = errors.New("p9wire: trailing bytes after decode")

	// ErrUnknownOpcode names a frame header whose type byte is not
	// present in the catalog. No decoder in this package returns it: a
	// DecodeXxx given any other type byte returns ErrOpcodeMismatch.
	ErrUnknownOpcode = errors.New("p9wire: unknown message opcode")

	// ErrOpcodeMismatch is returned when Decode is asked to decode a
	// specific message type but the frame names a different opcode.
	ErrOpcodeMismatch = errors.New("p9wire: opcode does not match requested message type")
)
