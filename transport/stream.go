package transport

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// minBufSize mirrors the teacher's styxproto.MinBufSize: a buffered
// reader smaller than one frame header defeats the point of buffering.
const minBufSize = 4096

// ErrNotConnected is returned by WriteAll/ReadFrame before Connect has
// succeeded.
var ErrNotConnected = errors.New("transport: not connected")

// errShortFrame is returned when a declared frame size is smaller than
// the 4-byte size prefix that carries it.
var errShortFrame = errors.New("transport: frame size smaller than its own length prefix")

// Dialer opens the underlying connection. It is called at most once
// per Connect, and only when no connection is already open.
type Dialer func(ctx context.Context) (io.ReadWriteCloser, error)

// StreamTransport carries 9P frames over a byte-stream socket (TCP or
// Unix domain), where message boundaries are not preserved by the
// transport and must be recovered from the 4-byte little-endian size
// prefix every 9P message starts with. ReadFrame reads that prefix,
// then reads exactly that many more bytes, rather than looping on
// would-block/EOF as the original client this was distilled from did.
type StreamTransport struct {
	Dial Dialer

	// MaxSize caps the frame size ReadFrame will allocate for, guarding
	// against a corrupt or hostile size prefix. Zero means unlimited,
	// matching the teacher's Decoder.MaxSize == -1 "accept any size"
	// convention (spec.md leaves frame size bounded only by msize,
	// which the p9l engine sets after negotiation).
	MaxSize uint32

	mu  sync.Mutex
	rwc io.ReadWriteCloser
	br  *bufio.Reader
}

// NewStreamTransport returns a StreamTransport that dials lazily on
// the first Connect call.
func NewStreamTransport(dial Dialer) *StreamTransport {
	return &StreamTransport{Dial: dial}
}

func (t *StreamTransport) Connect(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rwc != nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rwc, err := t.Dial(ctx)
	if err != nil {
		return err
	}
	t.rwc = rwc
	t.br = bufio.NewReaderSize(rwc, minBufSize)
	return nil
}

func (t *StreamTransport) WriteAll(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	rwc := t.rwc
	t.mu.Unlock()
	if rwc == nil {
		return ErrNotConnected
	}
	for len(frame) > 0 {
		n, err := rwc.Write(frame)
		if err != nil {
			return err
		}
		frame = frame[n:]
	}
	return nil
}

// ReadFrame reads one complete 9P message: the 4-byte size prefix,
// then exactly size-4 more bytes. It is not given a context deadline
// for the read itself (spec.md: cancellation is not supported
// mid-receive), only checked for a transport that was never connected.
func (t *StreamTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	br := t.br
	t.mu.Unlock()
	if br == nil {
		return nil, ErrNotConnected
	}

	var sizeBuf [4]byte
	if _, err := io.ReadFull(br, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	if size < 4 {
		return nil, fmt.Errorf("frame declares size %d: %w", size, errShortFrame)
	}
	if t.MaxSize != 0 && size > t.MaxSize {
		return nil, fmt.Errorf("frame declares size %d, exceeds negotiated msize %d", size, t.MaxSize)
	}

	frame := make([]byte, size)
	copy(frame, sizeBuf[:])
	if _, err := io.ReadFull(br, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

func (t *StreamTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rwc == nil {
		return nil
	}
	err := t.rwc.Close()
	t.rwc = nil
	t.br = nil
	return err
}
