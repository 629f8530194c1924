// Package transport abstracts over the two kinds of wire a 9P2000.L
// client speaks to: a byte-stream socket (TCP, Unix domain) and a
// character device exposing a virtio-9p or similar channel, where a
// single write is a single request and a single read is a single
// reply.
package transport

import (
	"context"
	"errors"
)

// ErrClosed names use of a closed transport. StreamTransport and
// RecordTransport do not return it: after Close, their WriteAll and
// ReadFrame return ErrNotConnected until Connect dials again.
var ErrClosed = errors.New("transport: use of closed transport")

// A Transport carries whole 9P messages. Connect is idempotent: once a
// connection is established, subsequent calls are no-ops until Close.
// WriteAll sends one complete, already-framed message; ReadFrame
// returns exactly the bytes of one complete message, header included.
// Implementations need not be safe for concurrent use; the p9l engine
// serializes access with its own mutex.
type Transport interface {
	Connect(ctx context.Context) error
	WriteAll(ctx context.Context, frame []byte) error
	ReadFrame(ctx context.Context) ([]byte, error)
	Close() error
}
