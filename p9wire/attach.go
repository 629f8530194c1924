package p9wire

import "fmt"

// Tattach introduces a user on the client to the file tree named by
// Aname, binding the result to Fid.
type Tattach struct {
	Tag    uint16
	Fid    uint32
	Afid   uint32
	Uname  string
	Aname  string
	Nuname uint32
}

func (m Tattach) Encode(buf []byte) ([]byte, error) {
	if _, err := stringEncodedLen(m.Uname); err != nil {
		return nil, err
	}
	if _, err := stringEncodedLen(m.Aname); err != nil {
		return nil, err
	}
	start := len(buf)
	buf = putHeader(buf, 0, msgTattach, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU32(m.Afid)
	w.PutString(m.Uname)
	w.PutString(m.Aname)
	w.PutU32(m.Nuname)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTattach(b []byte) (Tattach, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tattach{}, nil, err
	}
	if err := checkOpcode(msgTattach, hdr.Type); err != nil {
		return Tattach{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tattach{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tattach{}, nil, fmt.Errorf("Tattach.Fid: %w", err)
	}
	afid, body, err := getU32(body)
	if err != nil {
		return Tattach{}, nil, fmt.Errorf("Tattach.Afid: %w", err)
	}
	uname, body, err := getString(body)
	if err != nil {
		return Tattach{}, nil, fmt.Errorf("Tattach.Uname: %w", err)
	}
	aname, body, err := getString(body)
	if err != nil {
		return Tattach{}, nil, fmt.Errorf("Tattach.Aname: %w", err)
	}
	nuname, body, err := getU32(body)
	if err != nil {
		return Tattach{}, nil, fmt.Errorf("Tattach.Nuname: %w", err)
	}
	if len(body) != 0 {
		return Tattach{}, nil, fmt.Errorf("Tattach: %w", ErrTrailingBytes)
	}
	return Tattach{Tag: hdr.Tag, Fid: fid, Afid: afid, Uname: uname, Aname: aname, Nuname: nuname}, rest, nil
}

// Rattach is the server's reply to a successful Tattach.
type Rattach struct {
	Tag uint16
	Qid Qid
}

func (m Rattach) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRattach, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutQid(m.Qid)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRattach(b []byte) (Rattach, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rattach{}, nil, err
	}
	if err := checkOpcode(msgRattach, hdr.Type); err != nil {
		return Rattach{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rattach{}, nil, err
	}
	qid, body, err := DecodeQid(body)
	if err != nil {
		return Rattach{}, nil, fmt.Errorf("Rattach.Qid: %w", err)
	}
	if len(body) != 0 {
		return Rattach{}, nil, fmt.Errorf("Rattach: %w", ErrTrailingBytes)
	}
	return Rattach{Tag: hdr.Tag, Qid: qid}, rest, nil
}
