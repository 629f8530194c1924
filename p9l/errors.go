package p9l

import (
	"fmt"

	"9fans.dev/p9l/p9wire"
)

// ServerError wraps an Rlerror returned in place of the expected
// reply. Ecode is the raw Linux errno the server sent; Error's message
// comes from p9wire's errno table.
type ServerError struct {
	Op    string
	Ecode uint32
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("p9l: %s: %s", e.Op, p9wire.Rlerror{Ecode: e.Ecode}.Error())
}

func (e *ServerError) Unwrap() error {
	return p9wire.Rlerror{Ecode: e.Ecode}
}

// UnexpectedReturnTypeError is returned when a reply's opcode is
// neither the one requested nor Rlerror.
type UnexpectedReturnTypeError struct {
	Op       string
	Expected uint8
	Got      uint8
}

func (e *UnexpectedReturnTypeError) Error() string {
	return fmt.Sprintf("p9l: %s: expected %s, got %s", e.Op,
		p9wire.OpcodeName(e.Expected), p9wire.OpcodeName(e.Got))
}

// VersionMismatchError is returned when the server's Rversion names a
// protocol dialect the caller did not ask for.
type VersionMismatchError struct {
	Requested, Negotiated string
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("p9l: version mismatch: requested %q, server negotiated %q",
		e.Requested, e.Negotiated)
}

// TransportError wraps any error returned by the underlying
// transport's Connect, WriteAll, or ReadFrame.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("p9l: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
