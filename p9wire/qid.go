package p9wire

import "fmt"

// Qid type bits, per spec.md §3.
const (
	QTDir    uint8 = 0x80
	QTAppend uint8 = 0x40
	QTExcl   uint8 = 0x20
	QTMount  uint8 = 0x10
	QTAuth   uint8 = 0x08
	QTTmp    uint8 = 0x04
	QTLink   uint8 = 0x02
	QTFile   uint8 = 0x00
)

// QidLen is the on-wire size of a Qid: typ[1] version[4] path[8].
const QidLen = 13

// A Qid is the server-assigned identity of a file system object.
// Multiple fids may share the same Qid.
type Qid struct {
	Type    uint8
	Version uint32
	Path    uint64
}

func (q Qid) put(b []byte) {
	b[0] = q.Type
	buint32(b[1:5], q.Version)
	buint64(b[5:13], q.Path)
}

// Encode appends the wire encoding of q to buf and returns the result.
func (q Qid) Encode(buf []byte) []byte {
	var b [QidLen]byte
	q.put(b[:])
	return append(buf, b[:]...)
}

// DecodeQid decodes a Qid from the front of b, returning it along with
// the remaining bytes.
func DecodeQid(b []byte) (Qid, []byte, error) {
	raw, rest, err := getBytes(b, QidLen)
	if err != nil {
		return Qid{}, nil, fmt.Errorf("qid: %w", err)
	}
	return Qid{
		Type:    raw[0],
		Version: guint32(raw[1:5]),
		Path:    guint64(raw[5:13]),
	}, rest, nil
}

func (q Qid) String() string {
	kind := "file"
	switch {
	case q.Type&QTDir != 0:
		kind = "dir"
	case q.Type&QTLink != 0:
		kind = "link"
	case q.Type&QTAuth != 0:
		kind = "auth"
	}
	return fmt.Sprintf("{%s v=%d path=%#x}", kind, q.Version, q.Path)
}

// IsDir reports whether q identifies a directory.
func (q Qid) IsDir() bool { return q.Type&QTDir != 0 }

// A Dirent is one entry inside an Rreaddir payload: a Qid, the cookie
// to pass as the next Treaddir's offset, a host DT_* directory-entry
// type (kept for QEMU 9p2000.L server compatibility), and a name.
type Dirent struct {
	Qid    Qid
	Offset uint64
	Type   uint8
	Name   string
}

// host DT_* constants, as returned by getdents(2). Only the ones the
// pull driver distinguishes are named; others pass through as-is.
const (
	DTUnknown uint8 = 0
	DTDir     uint8 = 4
	DTReg     uint8 = 8
	DTLnk     uint8 = 10
)

// encodedLen returns the number of bytes d will occupy on the wire:
// its Qid, offset, type byte, and length-prefixed Name.
func (d Dirent) encodedLen() (int, error) {
	n, err := stringEncodedLen(d.Name)
	if err != nil {
		return 0, err
	}
	return QidLen + 8 + 1 + n, nil
}

func (d Dirent) encode(w *errWriter) {
	w.PutQid(d.Qid)
	w.PutU64(d.Offset)
	w.PutU8(d.Type)
	w.PutString(d.Name)
}

func decodeDirent(b []byte) (Dirent, []byte, error) {
	qid, rest, err := DecodeQid(b)
	if err != nil {
		return Dirent{}, nil, err
	}
	offset, rest, err := getU64(rest)
	if err != nil {
		return Dirent{}, nil, fmt.Errorf("dirent offset: %w", err)
	}
	typ, rest, err := getU8(rest)
	if err != nil {
		return Dirent{}, nil, fmt.Errorf("dirent type: %w", err)
	}
	name, rest, err := getString(rest)
	if err != nil {
		return Dirent{}, nil, fmt.Errorf("dirent name: %w", err)
	}
	return Dirent{Qid: qid, Offset: offset, Type: typ, Name: name}, rest, nil
}

// PutDirents appends a vec_lv32b-framed vector of Dirents to buf: a u32
// byte count (not an element count) followed by the concatenated
// encodings. This is distinct from PutVec32's raw-byte payload framing,
// and is used only for Rreaddir, whose elements are variable-width.
func PutDirents(buf []byte, dirents []Dirent) ([]byte, error) {
	var body []byte
	for _, d := range dirents {
		n, err := d.encodedLen()
		if err != nil {
			return nil, err
		}
		start := len(body)
		body = append(body, make([]byte, n)...)
		w := &errWriter{w: &sliceWriter{&body, start}}
		d.encode(w)
		if w.err != nil {
			return nil, w.err
		}
	}
	if len(body) > int(^uint32(0)) {
		return nil, ErrEncodeOverflow
	}
	var prefix [4]byte
	buint32(prefix[:], uint32(len(body)))
	buf = append(buf, prefix[:]...)
	return append(buf, body...), nil
}

// GetDirents decodes a vec_lv32b-framed Dirent vector from the front of
// b: a u32 byte count, then elements parsed until that many bytes are
// consumed. Returns the Dirents, in wire order, and the bytes following
// the vector.
func GetDirents(b []byte) ([]Dirent, []byte, error) {
	n, rest, err := getU32(b)
	if err != nil {
		return nil, nil, fmt.Errorf("dirent vector byte count: %w", err)
	}
	body, rest, err := getBytes(rest, int(n))
	if err != nil {
		return nil, nil, fmt.Errorf("dirent vector body: %w", err)
	}
	var out []Dirent
	for len(body) > 0 {
		var d Dirent
		d, body, err = decodeDirent(body)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, d)
	}
	return out, rest, nil
}

// sliceWriter lets errWriter append into a pre-sized byte slice in
// place, the same trick the teacher's internal/wire.Encoder uses to
// avoid a second allocation when a message's length is already known.
type sliceWriter struct {
	buf   *[]byte
	start int
}

func (s *sliceWriter) Write(p []byte) (int, error) {
	copy((*s.buf)[s.start:], p)
	s.start += len(p)
	return len(p), nil
}
