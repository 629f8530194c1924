package p9wire

import "fmt"

// Tlopen open-mode flags, matching Linux open(2) bits.
const (
	ORdOnly uint32 = 0
	OWrOnly uint32 = 1
	ORdWr   uint32 = 2
)

// Tlopen prepares Fid, previously obtained from Tattach or Twalk, for
// I/O.
type Tlopen struct {
	Tag   uint16
	Fid   uint32
	Flags uint32
}

func (m Tlopen) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTlopen, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU32(m.Flags)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTlopen(b []byte) (Tlopen, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tlopen{}, nil, err
	}
	if err := checkOpcode(msgTlopen, hdr.Type); err != nil {
		return Tlopen{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tlopen{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tlopen{}, nil, fmt.Errorf("Tlopen.Fid: %w", err)
	}
	flags, body, err := getU32(body)
	if err != nil {
		return Tlopen{}, nil, fmt.Errorf("Tlopen.Flags: %w", err)
	}
	if len(body) != 0 {
		return Tlopen{}, nil, fmt.Errorf("Tlopen: %w", ErrTrailingBytes)
	}
	return Tlopen{Tag: hdr.Tag, Fid: fid, Flags: flags}, rest, nil
}

// Rlopen is the server's reply to Tlopen.
type Rlopen struct {
	Tag    uint16
	Qid    Qid
	Iounit uint32
}

func (m Rlopen) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRlopen, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutQid(m.Qid)
	w.PutU32(m.Iounit)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRlopen(b []byte) (Rlopen, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rlopen{}, nil, err
	}
	if err := checkOpcode(msgRlopen, hdr.Type); err != nil {
		return Rlopen{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rlopen{}, nil, err
	}
	qid, body, err := DecodeQid(body)
	if err != nil {
		return Rlopen{}, nil, fmt.Errorf("Rlopen.Qid: %w", err)
	}
	iounit, body, err := getU32(body)
	if err != nil {
		return Rlopen{}, nil, fmt.Errorf("Rlopen.Iounit: %w", err)
	}
	if len(body) != 0 {
		return Rlopen{}, nil, fmt.Errorf("Rlopen: %w", ErrTrailingBytes)
	}
	return Rlopen{Tag: hdr.Tag, Qid: qid, Iounit: iounit}, rest, nil
}

// Tread requests up to Count bytes from Fid starting at Offset. Count
// must not exceed the session msize minus the 11-byte Tread/Twrite/
// Treaddir header overhead (spec.md §3 invariant).
type Tread struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m Tread) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTread, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU64(m.Offset)
	w.PutU32(m.Count)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTread(b []byte) (Tread, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tread{}, nil, err
	}
	if err := checkOpcode(msgTread, hdr.Type); err != nil {
		return Tread{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tread{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tread{}, nil, fmt.Errorf("Tread.Fid: %w", err)
	}
	offset, body, err := getU64(body)
	if err != nil {
		return Tread{}, nil, fmt.Errorf("Tread.Offset: %w", err)
	}
	count, body, err := getU32(body)
	if err != nil {
		return Tread{}, nil, fmt.Errorf("Tread.Count: %w", err)
	}
	if len(body) != 0 {
		return Tread{}, nil, fmt.Errorf("Tread: %w", ErrTrailingBytes)
	}
	return Tread{Tag: hdr.Tag, Fid: fid, Offset: offset, Count: count}, rest, nil
}

// Rread carries the bytes read by a Tread. An empty Data signals EOF
// to the pull driver's read loop.
type Rread struct {
	Tag  uint16
	Data []byte
}

func (m Rread) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRread, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	if err := PutVec32(w, m.Data); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRread(b []byte) (Rread, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rread{}, nil, err
	}
	if err := checkOpcode(msgRread, hdr.Type); err != nil {
		return Rread{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rread{}, nil, err
	}
	data, body, err := GetVec32(body)
	if err != nil {
		return Rread{}, nil, fmt.Errorf("Rread.Data: %w", err)
	}
	if len(body) != 0 {
		return Rread{}, nil, fmt.Errorf("Rread: %w", ErrTrailingBytes)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return Rread{Tag: hdr.Tag, Data: out}, rest, nil
}

// Twrite writes Data to Fid starting at Offset.
type Twrite struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Data   []byte
}

func (m Twrite) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTwrite, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU64(m.Offset)
	if err := PutVec32(w, m.Data); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTwrite(b []byte) (Twrite, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Twrite{}, nil, err
	}
	if err := checkOpcode(msgTwrite, hdr.Type); err != nil {
		return Twrite{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Twrite{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Twrite{}, nil, fmt.Errorf("Twrite.Fid: %w", err)
	}
	offset, body, err := getU64(body)
	if err != nil {
		return Twrite{}, nil, fmt.Errorf("Twrite.Offset: %w", err)
	}
	data, body, err := GetVec32(body)
	if err != nil {
		return Twrite{}, nil, fmt.Errorf("Twrite.Data: %w", err)
	}
	if len(body) != 0 {
		return Twrite{}, nil, fmt.Errorf("Twrite: %w", ErrTrailingBytes)
	}
	out := make([]byte, len(data))
	copy(out, data)
	return Twrite{Tag: hdr.Tag, Fid: fid, Offset: offset, Data: out}, rest, nil
}

// Rwrite reports the number of bytes actually written by a Twrite.
type Rwrite struct {
	Tag   uint16
	Count uint32
}

func (m Rwrite) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRwrite, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Count)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRwrite(b []byte) (Rwrite, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rwrite{}, nil, err
	}
	if err := checkOpcode(msgRwrite, hdr.Type); err != nil {
		return Rwrite{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rwrite{}, nil, err
	}
	count, body, err := getU32(body)
	if err != nil {
		return Rwrite{}, nil, fmt.Errorf("Rwrite.Count: %w", err)
	}
	if len(body) != 0 {
		return Rwrite{}, nil, fmt.Errorf("Rwrite: %w", ErrTrailingBytes)
	}
	return Rwrite{Tag: hdr.Tag, Count: count}, rest, nil
}

// Treaddir requests directory entries from Fid (previously opened with
// Tlopen). Offset 0 restarts enumeration; subsequent calls should pass
// the last Dirent's Offset cookie, not a byte count (spec.md §9).
type Treaddir struct {
	Tag    uint16
	Fid    uint32
	Offset uint64
	Count  uint32
}

func (m Treaddir) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTreaddir, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU64(m.Offset)
	w.PutU32(m.Count)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTreaddir(b []byte) (Treaddir, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Treaddir{}, nil, err
	}
	if err := checkOpcode(msgTreaddir, hdr.Type); err != nil {
		return Treaddir{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Treaddir{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Treaddir{}, nil, fmt.Errorf("Treaddir.Fid: %w", err)
	}
	offset, body, err := getU64(body)
	if err != nil {
		return Treaddir{}, nil, fmt.Errorf("Treaddir.Offset: %w", err)
	}
	count, body, err := getU32(body)
	if err != nil {
		return Treaddir{}, nil, fmt.Errorf("Treaddir.Count: %w", err)
	}
	if len(body) != 0 {
		return Treaddir{}, nil, fmt.Errorf("Treaddir: %w", ErrTrailingBytes)
	}
	return Treaddir{Tag: hdr.Tag, Fid: fid, Offset: offset, Count: count}, rest, nil
}

// Rreaddir carries a vec_lv32b-framed vector of Dirents: a u32 byte
// count (not an element count), distinguishing it from Rread's plain
// byte payload, since Dirents are variable width.
type Rreaddir struct {
	Tag     uint16
	Dirents []Dirent
}

func (m Rreaddir) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRreaddir, m.Tag)
	buf, err := PutDirents(buf, m.Dirents)
	if err != nil {
		return nil, err
	}
	return finishFrame(buf, start), nil
}

func DecodeRreaddir(b []byte) (Rreaddir, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rreaddir{}, nil, err
	}
	if err := checkOpcode(msgRreaddir, hdr.Type); err != nil {
		return Rreaddir{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rreaddir{}, nil, err
	}
	dirents, body, err := GetDirents(body)
	if err != nil {
		return Rreaddir{}, nil, fmt.Errorf("Rreaddir.Data: %w", err)
	}
	if len(body) != 0 {
		return Rreaddir{}, nil, fmt.Errorf("Rreaddir: %w", ErrTrailingBytes)
	}
	return Rreaddir{Tag: hdr.Tag, Dirents: dirents}, rest, nil
}

// Tclunk retires Fid. The pull driver does not issue Tclunk (spec.md
// §3's documented fid leak, acceptable for one-shot sessions).
type Tclunk struct {
	Tag uint16
	Fid uint32
}

func (m Tclunk) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTclunk, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTclunk(b []byte) (Tclunk, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tclunk{}, nil, err
	}
	if err := checkOpcode(msgTclunk, hdr.Type); err != nil {
		return Tclunk{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tclunk{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tclunk{}, nil, fmt.Errorf("Tclunk.Fid: %w", err)
	}
	if len(body) != 0 {
		return Tclunk{}, nil, fmt.Errorf("Tclunk: %w", ErrTrailingBytes)
	}
	return Tclunk{Tag: hdr.Tag, Fid: fid}, rest, nil
}

// Rclunk is the server's reply to Tclunk. It has no payload.
type Rclunk struct {
	Tag uint16
}

func (m Rclunk) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRclunk, m.Tag)
	return finishFrame(buf, start), nil
}

func DecodeRclunk(b []byte) (Rclunk, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rclunk{}, nil, err
	}
	if err := checkOpcode(msgRclunk, hdr.Type); err != nil {
		return Rclunk{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rclunk{}, nil, err
	}
	if len(body) != 0 {
		return Rclunk{}, nil, fmt.Errorf("Rclunk: %w", ErrTrailingBytes)
	}
	return Rclunk{Tag: hdr.Tag}, rest, nil
}
