// Package p9wire implements the wire codec and message catalog for the
// 9P2000.L protocol family (9P2000, 9P2000.U, 9P2000.L, and the local
// 9P2000.P4 dialect). Messages are tightly packed little-endian records;
// there is no alignment padding anywhere in the wire format.
package p9wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"unicode/utf8"
)

// Shorthand for parsing numbers, matching the convention used throughout
// the 9P implementations this package is grounded on.
var (
	guint16 = binary.LittleEndian.Uint16
	guint32 = binary.LittleEndian.Uint32
	guint64 = binary.LittleEndian.Uint64

	buint16 = binary.LittleEndian.PutUint16
	buint32 = binary.LittleEndian.PutUint32
	buint64 = binary.LittleEndian.PutUint64
)

// errWriter defers error checking across a run of small writes that
// build up a single 9P message. Every Put* method is a no-op once an
// error has been recorded, so a message encoder can fire off a dozen
// writes and check err once at the end.
type errWriter struct {
	w   io.Writer
	n   int
	err error
}

func (w *errWriter) write(p []byte) {
	if w.err != nil {
		return
	}
	n, err := w.w.Write(p)
	w.n += n
	w.err = err
}

func (w *errWriter) PutU8(v uint8) {
	w.write([]byte{v})
}

func (w *errWriter) PutU16(v uint16) {
	var buf [2]byte
	buint16(buf[:], v)
	w.write(buf[:])
}

func (w *errWriter) PutU32(v uint32) {
	var buf [4]byte
	buint32(buf[:], v)
	w.write(buf[:])
}

func (w *errWriter) PutU64(v uint64) {
	var buf [8]byte
	buint64(buf[:], v)
	w.write(buf[:])
}

// PutString writes a u16-length-prefixed UTF-8 string (write_str_lv16
// in spec terms). It does not itself validate the length fits in a
// u16; callers are expected to have checked stringEncodedLen first.
func (w *errWriter) PutString(s string) {
	w.PutU16(uint16(len(s)))
	w.write([]byte(s))
}

func (w *errWriter) PutBytes(p []byte) {
	w.write(p)
}

func (w *errWriter) PutQid(q Qid) {
	var buf [13]byte
	q.put(buf[:])
	w.write(buf[:])
}

// stringEncodedLen returns the number of bytes s will occupy on the
// wire (2-byte length prefix plus its raw bytes), or an error if s is
// too long to be length-prefixed by a u16.
func stringEncodedLen(s string) (int, error) {
	if len(s) > math.MaxUint16 {
		return 0, fmt.Errorf("string field %.16q...: %w", s, ErrEncodeOverflow)
	}
	return 2 + len(s), nil
}

// getString decodes a u16-length-prefixed UTF-8 string from the front
// of b, returning the string and the remaining bytes.
func getString(b []byte) (string, []byte, error) {
	if len(b) < 2 {
		return "", nil, fmt.Errorf("string length prefix: %w", ErrUnexpectedEOF)
	}
	n := int(guint16(b))
	b = b[2:]
	if len(b) < n {
		return "", nil, fmt.Errorf("string body (%d bytes): %w", n, ErrUnexpectedEOF)
	}
	if !utf8.Valid(b[:n]) {
		return "", nil, ErrInvalidUTF8
	}
	return string(b[:n]), b[n:], nil
}

// getU8/16/32/64 decode a scalar from the front of b and return the
// remaining bytes.
func getU8(b []byte) (uint8, []byte, error) {
	if len(b) < 1 {
		return 0, nil, fmt.Errorf("u8 field: %w", ErrUnexpectedEOF)
	}
	return b[0], b[1:], nil
}

func getU16(b []byte) (uint16, []byte, error) {
	if len(b) < 2 {
		return 0, nil, fmt.Errorf("u16 field: %w", ErrUnexpectedEOF)
	}
	return guint16(b), b[2:], nil
}

func getU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("u32 field: %w", ErrUnexpectedEOF)
	}
	return guint32(b), b[4:], nil
}

func getU64(b []byte) (uint64, []byte, error) {
	if len(b) < 8 {
		return 0, nil, fmt.Errorf("u64 field: %w", ErrUnexpectedEOF)
	}
	return guint64(b), b[8:], nil
}

func getBytes(b []byte, n int) ([]byte, []byte, error) {
	if len(b) < n {
		return nil, nil, fmt.Errorf("%d-byte field: %w", n, ErrUnexpectedEOF)
	}
	return b[:n], b[n:], nil
}

// PutVec16 appends a u16 element-count prefix (vec_lv16 in spec terms)
// followed by n elements, each written in turn by encode. Used for the
// two u16-counted vectors in the catalog: Twalk's Wnames and Rwalk's
// Qids.
func PutVec16(w *errWriter, n int, encode func(i int)) error {
	if n > math.MaxUint16 {
		return fmt.Errorf("vector of %d elements: %w", n, ErrEncodeOverflow)
	}
	w.PutU16(uint16(n))
	for i := 0; i < n; i++ {
		encode(i)
	}
	return nil
}

// GetVec16 decodes a u16 element-count prefix from the front of b,
// then calls decode once per element in order, threading the
// remaining bytes through each call. It returns the element count and
// the bytes left after the last element.
func GetVec16(b []byte, decode func(i int, b []byte) ([]byte, error)) (n int, rest []byte, err error) {
	count, rest, err := getU16(b)
	if err != nil {
		return 0, nil, err
	}
	n = int(count)
	for i := 0; i < n; i++ {
		rest, err = decode(i, rest)
		if err != nil {
			return 0, nil, err
		}
	}
	return n, rest, nil
}

// PutVec32 appends a u32 byte-count prefix followed by data itself:
// the framing Rread and Twrite give their payload, where the "vector"
// is of raw bytes and its u32 count is a byte count, not an element
// count — distinct from PutDirents' vec_lv32b framing, whose elements
// are variable-width Dirents rather than single bytes.
func PutVec32(w *errWriter, data []byte) error {
	if len(data) > int(^uint32(0)) {
		return fmt.Errorf("vector of %d bytes: %w", len(data), ErrEncodeOverflow)
	}
	w.PutU32(uint32(len(data)))
	w.PutBytes(data)
	return nil
}

// GetVec32 decodes a u32 byte-count prefix from the front of b and
// returns that many following bytes, plus whatever remains after them.
func GetVec32(b []byte) (data, rest []byte, err error) {
	n, rest, err := getU32(b)
	if err != nil {
		return nil, nil, err
	}
	data, rest, err = getBytes(rest, int(n))
	if err != nil {
		return nil, nil, err
	}
	return data, rest, nil
}

// appendWriter adapts an append-only []byte into an io.Writer, so the
// same errWriter used for fixed buffers can also grow a frame in
// place while it is being built.
type appendWriter struct {
	buf *[]byte
}

func (a appendWriter) Write(p []byte) (int, error) {
	*a.buf = append(*a.buf, p...)
	return len(p), nil
}

// frameBody slices the payload out of a single 9P frame, given its
// already-decoded header, and returns it along with any bytes in b
// beyond the frame (normally none; present only in test fixtures that
// concatenate multiple frames).
func frameBody(b []byte, hdr Header) (payload, rest []byte, err error) {
	if uint32(len(b)) < hdr.Size {
		return nil, nil, fmt.Errorf("frame body (%d bytes): %w", hdr.Size, ErrUnexpectedEOF)
	}
	return b[HeaderLen:hdr.Size], b[hdr.Size:], nil
}
