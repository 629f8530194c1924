package p9wire

import "fmt"

// Tversion negotiates the protocol version and message size for a
// connection. It must be the first message sent, with Tag == NoTag.
type Tversion struct {
	Msize   uint32
	Version string
}

// Encode appends the wire encoding of m to buf and returns the result.
func (m Tversion) Encode(buf []byte) ([]byte, error) {
	if _, err := stringEncodedLen(m.Version); err != nil {
		return nil, err
	}
	start := len(buf)
	buf = putHeader(buf, 0, msgTversion, NoTag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Msize)
	w.PutString(m.Version)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

// DecodeTversion decodes a Tversion frame from the front of b.
func DecodeTversion(b []byte) (Tversion, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tversion{}, nil, err
	}
	if err := checkOpcode(msgTversion, hdr.Type); err != nil {
		return Tversion{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tversion{}, nil, err
	}
	msize, body, err := getU32(body)
	if err != nil {
		return Tversion{}, nil, fmt.Errorf("Tversion.Msize: %w", err)
	}
	version, body, err := getString(body)
	if err != nil {
		return Tversion{}, nil, fmt.Errorf("Tversion.Version: %w", err)
	}
	if len(body) != 0 {
		return Tversion{}, nil, fmt.Errorf("Tversion: %w", ErrTrailingBytes)
	}
	return Tversion{Msize: msize, Version: version}, rest, nil
}

// Rversion is the server's reply to Tversion.
type Rversion struct {
	Msize   uint32
	Version string
}

func (m Rversion) Encode(buf []byte) ([]byte, error) {
	if _, err := stringEncodedLen(m.Version); err != nil {
		return nil, err
	}
	start := len(buf)
	buf = putHeader(buf, 0, msgRversion, NoTag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Msize)
	w.PutString(m.Version)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRversion(b []byte) (Rversion, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rversion{}, nil, err
	}
	if err := checkOpcode(msgRversion, hdr.Type); err != nil {
		return Rversion{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rversion{}, nil, err
	}
	msize, body, err := getU32(body)
	if err != nil {
		return Rversion{}, nil, fmt.Errorf("Rversion.Msize: %w", err)
	}
	version, body, err := getString(body)
	if err != nil {
		return Rversion{}, nil, fmt.Errorf("Rversion.Version: %w", err)
	}
	if len(body) != 0 {
		return Rversion{}, nil, fmt.Errorf("Rversion: %w", ErrTrailingBytes)
	}
	return Rversion{Msize: msize, Version: version}, rest, nil
}
