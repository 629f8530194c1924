// Package p9l implements a 9P2000.L client: version negotiation,
// attach, walk, and I/O requests sent over a transport.Transport, with
// strict per-transport serialization and no tag multiplexing.
package p9l

import (
	"context"
	"sync"
	"time"

	"aqwari.net/retry"
	"github.com/sirupsen/logrus"

	"9fans.dev/p9l/internal/metrics"
	"9fans.dev/p9l/p9wire"
	"9fans.dev/p9l/transport"
)

// TraceFunc is called with every message a Client sends or receives,
// passed as the decoded Header plus the whole raw frame, header
// included. recv is false for outgoing messages, true for replies.
type TraceFunc func(recv bool, hdr p9wire.Header, frame []byte)

// Logger is satisfied by *logrus.Logger and anything with an
// equivalent Printf-style surface, mirroring the teacher's Logger
// interface compatible with *log.Logger.
type Logger interface {
	Printf(format string, args ...interface{})
}

// A Client is a 9P2000.L client bound to a single transport. The zero
// value is usable: MaxSize, Timeout, Backoff, Logger, Trace, and
// Metrics all have effective defaults when left unset, the same
// zero-value philosophy as the teacher's own Client.
type Client struct {
	// Transport carries frames to and from the server. It must be set
	// before the first Send; there is no default.
	Transport transport.Transport

	// MaxSize is the msize this Client offers in Tversion. Defaults to
	// DefaultMaxSize.
	MaxSize uint32

	// Version is the protocol version token offered in Tversion.
	// Defaults to p9wire.Version9P2000L.
	Version string

	// Timeout bounds the context a single send hands to the
	// transport. Zero means no timeout. The transports in this module
	// check that context only before writing the request; a ReadFrame
	// already waiting for a reply is not interrupted by it. The pull
	// driver leaves this zero.
	Timeout time.Duration

	// Backoff computes the delay before the Nth (1-indexed) reconnect
	// attempt. Defaults to retry.Exponential(time.Millisecond).Max(time.Second),
	// the same call the teacher's serve loop uses for Accept retries.
	Backoff func(try int) time.Duration

	// Logger receives diagnostic messages about connect attempts,
	// retries, and server errors. Defaults to logrus.StandardLogger().
	Logger Logger

	// Trace, if set, is called with every message sent and received.
	Trace TraceFunc

	// Metrics, if set, records request/reply counters and latency
	// histograms. A nil Metrics is a documented no-op.
	Metrics *metrics.Set

	mu         sync.Mutex
	negotiated string
	msize      uint32
}

// DefaultMaxSize is used when Client.MaxSize is zero.
const DefaultMaxSize = 64 * 1024

func (c *Client) logf(format string, args ...interface{}) {
	if c.Logger != nil {
		c.Logger.Printf(format, args...)
		return
	}
	logrus.StandardLogger().Printf(format, args...)
}

func (c *Client) backoff(try int) time.Duration {
	if c.Backoff != nil {
		return c.Backoff(try)
	}
	return retry.Exponential(time.Millisecond).Max(time.Second)(try)
}

func (c *Client) maxSize() uint32 {
	if c.MaxSize != 0 {
		return c.MaxSize
	}
	return DefaultMaxSize
}

func (c *Client) version() string {
	if c.Version != "" {
		return c.Version
	}
	return p9wire.Version9P2000L
}

// connect ensures the transport is dialed, retrying with c.backoff on
// transient failures. It must be called with c.mu held.
func (c *Client) connect(ctx context.Context) error {
	var err error
	for try := 1; ; try++ {
		err = c.Transport.Connect(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return &TransportError{Op: "connect", Err: ctx.Err()}
		}
		delay := c.backoff(try)
		c.logf("p9l: connect attempt %d failed: %v; retrying in %v", try, err, delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return &TransportError{Op: "connect", Err: ctx.Err()}
		}
		if try >= maxConnectAttempts {
			return &TransportError{Op: "connect", Err: err}
		}
	}
}

const maxConnectAttempts = 5

// withTimeout derives a context bounded by c.Timeout, unless it is
// zero, in which case ctx is returned unmodified.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.Timeout)
}
