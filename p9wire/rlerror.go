package p9wire

import "fmt"

// Rlerror replaces the usual reply on a failed call. Ecode is a Linux
// errno value. Rlerror.Error satisfies the error interface so an
// Rlerror can be returned directly from code that surfaces it.
type Rlerror struct {
	Tag   uint16
	Ecode uint32
}

func (m Rlerror) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRlerror, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Ecode)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRlerror(b []byte) (Rlerror, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rlerror{}, nil, err
	}
	if err := checkOpcode(msgRlerror, hdr.Type); err != nil {
		return Rlerror{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rlerror{}, nil, err
	}
	ecode, body, err := getU32(body)
	if err != nil {
		return Rlerror{}, nil, fmt.Errorf("Rlerror.Ecode: %w", err)
	}
	if len(body) != 0 {
		return Rlerror{}, nil, fmt.Errorf("Rlerror: %w", ErrTrailingBytes)
	}
	return Rlerror{Tag: hdr.Tag, Ecode: ecode}, rest, nil
}

func (m Rlerror) Error() string {
	if msg, ok := errnoNames[m.Ecode]; ok {
		return msg
	}
	return fmt.Sprintf("errno %d", m.Ecode)
}

// errnoNames covers the handful of Linux errno values 9P2000.L servers
// commonly return; it is only used to produce a friendlier message
// than "errno N" and is not authoritative.
var errnoNames = map[uint32]string{
	1:  "operation not permitted",
	2:  "no such file or directory",
	5:  "input/output error",
	9:  "bad file descriptor",
	13: "permission denied",
	17: "file exists",
	20: "not a directory",
	21: "is a directory",
	22: "invalid argument",
	28: "no space left on device",
	40: "too many levels of symbolic links",
}
