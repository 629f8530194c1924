package transport

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// RecordTransport carries 9P frames over a character device (a
// virtio-9p channel, or a synthetic one in tests) where the device
// itself preserves message boundaries: one write(2) delivers exactly
// one request, and one read(2) returns exactly one reply, already
// framed by the server. No size-prefix scanning is needed or
// performed; WriteAll issues a single Write call rather than looping,
// since splitting a request across two writes would change its
// meaning to such a device.
type RecordTransport struct {
	Dial Dialer

	// BufSize bounds the largest reply ReadFrame can receive in one
	// read(2); it should be set to the negotiated msize once known.
	BufSize int

	mu  sync.Mutex
	rwc io.ReadWriteCloser
	buf []byte
}

// NewRecordTransport returns a RecordTransport that dials lazily on
// the first Connect call. bufSize bounds the largest single reply.
func NewRecordTransport(dial Dialer, bufSize int) *RecordTransport {
	return &RecordTransport{Dial: dial, BufSize: bufSize}
}

func (t *RecordTransport) Connect(ctx context.Context) error {
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
	if t.BufSize <= 0 {
		t.BufSize = minBufSize
	}
	t.buf = make([]byte, t.BufSize)
	return nil
}

func (t *RecordTransport) WriteAll(ctx context.Context, frame []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	rwc := t.rwc
	t.mu.Unlock()
	if rwc == nil {
		return ErrNotConnected
	}
	n, err := rwc.Write(frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("transport: short write of %d/%d bytes to record device", n, len(frame))
	}
	return nil
}

func (t *RecordTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	t.mu.Lock()
	rwc, buf := t.rwc, t.buf
	t.mu.Unlock()
	if rwc == nil {
		return nil, ErrNotConnected
	}
	n, err := rwc.Read(buf)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, buf[:n])
	return out, nil
}

func (t *RecordTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.rwc == nil {
		return nil
	}
	err := t.rwc.Close()
	t.rwc = nil
	t.buf = nil
	return err
}
