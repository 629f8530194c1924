package p9l

import (
	"context"
	"time"

	"9fans.dev/p9l/p9wire"
)

// encodeFunc matches the Encode method every p9wire message type has.
type encodeFunc func(buf []byte) ([]byte, error)

// send implements the engine contract of SPEC_FULL.md §4.4: connect on
// demand, serialize req, write_all, read_frame, decode only the
// header, and dispatch on its type. It holds c.mu for the whole
// exchange, so sends against one Client are strictly serialized.
func (c *Client) send(ctx context.Context, op string, encode encodeFunc, want uint8) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	reqFrame, err := encode(nil)
	if err != nil {
		return nil, err
	}

	if c.Trace != nil {
		if hdr, herr := p9wire.DecodeHeader(reqFrame); herr == nil {
			c.Trace(false, hdr, reqFrame)
		}
	}
	c.Metrics.ObserveRequest(p9wire.OpcodeName(want), len(reqFrame))

	start := time.Now()
	if err := c.Transport.WriteAll(ctx, reqFrame); err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	replyFrame, err := c.Transport.ReadFrame(ctx)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	hdr, err := p9wire.DecodeHeader(replyFrame)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	if c.Trace != nil {
		c.Trace(true, hdr, replyFrame)
	}
	c.Metrics.ObserveReply(p9wire.OpcodeName(want), len(replyFrame), time.Since(start))

	switch hdr.Type {
	case want:
		return replyFrame, nil
	case p9wire.OpRlerror:
		rerr, _, derr := p9wire.DecodeRlerror(replyFrame)
		if derr != nil {
			return nil, &TransportError{Op: op, Err: derr}
		}
		c.Metrics.ObserveServerError(rerr.Ecode)
		return nil, &ServerError{Op: op, Ecode: rerr.Ecode}
	default:
		return nil, &UnexpectedReturnTypeError{Op: op, Expected: want, Got: hdr.Type}
	}
}
