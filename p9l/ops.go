package p9l

import (
	"context"

	"9fans.dev/p9l/p9wire"
)

// Version negotiates the protocol version and message size. It must
// be the first call made on a Client; later calls use the msize this
// negotiates as their working buffer bound. If the server's reply
// names a different version than requested, Version still succeeds
// (per 9P convention the server may downgrade), and the returned
// Rversion reports what was actually agreed; callers that require an
// exact match should compare it themselves or use VersionL.
func (c *Client) Version(ctx context.Context) (p9wire.Rversion, error) {
	req := p9wire.Tversion{Msize: c.maxSize(), Version: c.version()}
	frame, err := c.send(ctx, "Tversion", req.Encode, p9wire.OpRversion)
	if err != nil {
		return p9wire.Rversion{}, err
	}
	reply, _, err := p9wire.DecodeRversion(frame)
	if err != nil {
		return p9wire.Rversion{}, &TransportError{Op: "Tversion", Err: err}
	}
	c.mu.Lock()
	c.negotiated = reply.Version
	c.msize = reply.Msize
	c.mu.Unlock()
	return reply, nil
}

// VersionL calls Version and additionally requires the server to
// agree to exactly "9P2000.L", returning *VersionMismatchError
// otherwise (spec.md §4.5 step 1: the pull driver must fail outright
// on any other negotiated dialect).
func (c *Client) VersionL(ctx context.Context) (p9wire.Rversion, error) {
	reply, err := c.Version(ctx)
	if err != nil {
		return reply, err
	}
	if reply.Version != p9wire.Version9P2000L {
		return reply, &VersionMismatchError{Requested: p9wire.Version9P2000L, Negotiated: reply.Version}
	}
	return reply, nil
}

// Msize returns the msize negotiated by the last successful Version
// call, or 0 if none has succeeded yet.
func (c *Client) Msize() uint32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.msize
}

// Attach introduces uname to the tree named aname, binding it to fid.
func (c *Client) Attach(ctx context.Context, fid, afid uint32, uname, aname string, nuname uint32) (p9wire.Rattach, error) {
	req := p9wire.Tattach{Fid: fid, Afid: afid, Uname: uname, Aname: aname, Nuname: nuname}
	frame, err := c.send(ctx, "Tattach", req.Encode, p9wire.OpRattach)
	if err != nil {
		return p9wire.Rattach{}, err
	}
	reply, _, err := p9wire.DecodeRattach(frame)
	if err != nil {
		return p9wire.Rattach{}, &TransportError{Op: "Tattach", Err: err}
	}
	return reply, nil
}

// Walk descends wnames from fid, binding the result to newfid. A
// short Rwalk (len(Qids) < len(wnames)) is returned as-is; it is the
// caller's responsibility to treat it as a partial-walk failure.
func (c *Client) Walk(ctx context.Context, fid, newfid uint32, wnames []string) (p9wire.Rwalk, error) {
	req := p9wire.Twalk{Fid: fid, Newfid: newfid, Wnames: wnames}
	frame, err := c.send(ctx, "Twalk", req.Encode, p9wire.OpRwalk)
	if err != nil {
		return p9wire.Rwalk{}, err
	}
	reply, _, err := p9wire.DecodeRwalk(frame)
	if err != nil {
		return p9wire.Rwalk{}, &TransportError{Op: "Twalk", Err: err}
	}
	return reply, nil
}

// Lopen prepares fid, previously obtained from Attach or Walk, for I/O.
func (c *Client) Lopen(ctx context.Context, fid, flags uint32) (p9wire.Rlopen, error) {
	req := p9wire.Tlopen{Fid: fid, Flags: flags}
	frame, err := c.send(ctx, "Tlopen", req.Encode, p9wire.OpRlopen)
	if err != nil {
		return p9wire.Rlopen{}, err
	}
	reply, _, err := p9wire.DecodeRlopen(frame)
	if err != nil {
		return p9wire.Rlopen{}, &TransportError{Op: "Tlopen", Err: err}
	}
	return reply, nil
}

// Read requests up to count bytes from fid starting at offset. An
// empty reply signals EOF.
func (c *Client) Read(ctx context.Context, fid uint32, offset uint64, count uint32) (p9wire.Rread, error) {
	req := p9wire.Tread{Fid: fid, Offset: offset, Count: count}
	frame, err := c.send(ctx, "Tread", req.Encode, p9wire.OpRread)
	if err != nil {
		return p9wire.Rread{}, err
	}
	reply, _, err := p9wire.DecodeRread(frame)
	if err != nil {
		return p9wire.Rread{}, &TransportError{Op: "Tread", Err: err}
	}
	return reply, nil
}

// Write writes data to fid starting at offset.
func (c *Client) Write(ctx context.Context, fid uint32, offset uint64, data []byte) (p9wire.Rwrite, error) {
	req := p9wire.Twrite{Fid: fid, Offset: offset, Data: data}
	frame, err := c.send(ctx, "Twrite", req.Encode, p9wire.OpRwrite)
	if err != nil {
		return p9wire.Rwrite{}, err
	}
	reply, _, err := p9wire.DecodeRwrite(frame)
	if err != nil {
		return p9wire.Rwrite{}, &TransportError{Op: "Twrite", Err: err}
	}
	return reply, nil
}

// Readdir requests directory entries from fid (previously opened with
// Lopen). Callers SHOULD advance offset by the last Dirent's Offset
// cookie rather than an element count (spec.md §9 REDESIGN).
func (c *Client) Readdir(ctx context.Context, fid uint32, offset uint64, count uint32) (p9wire.Rreaddir, error) {
	req := p9wire.Treaddir{Fid: fid, Offset: offset, Count: count}
	frame, err := c.send(ctx, "Treaddir", req.Encode, p9wire.OpRreaddir)
	if err != nil {
		return p9wire.Rreaddir{}, err
	}
	reply, _, err := p9wire.DecodeRreaddir(frame)
	if err != nil {
		return p9wire.Rreaddir{}, &TransportError{Op: "Treaddir", Err: err}
	}
	return reply, nil
}

// Getattr requests attributes of fid, restricted to the fields named
// in mask.
func (c *Client) Getattr(ctx context.Context, fid uint32, mask uint64) (p9wire.Rgetattr, error) {
	req := p9wire.Tgetattr{Fid: fid, RequestMask: mask}
	frame, err := c.send(ctx, "Tgetattr", req.Encode, p9wire.OpRgetattr)
	if err != nil {
		return p9wire.Rgetattr{}, err
	}
	reply, _, err := p9wire.DecodeRgetattr(frame)
	if err != nil {
		return p9wire.Rgetattr{}, &TransportError{Op: "Tgetattr", Err: err}
	}
	return reply, nil
}

// Statfs requests file system information for the tree containing fid.
func (c *Client) Statfs(ctx context.Context, fid uint32) (p9wire.Rstatfs, error) {
	req := p9wire.Tstatfs{Fid: fid}
	frame, err := c.send(ctx, "Tstatfs", req.Encode, p9wire.OpRstatfs)
	if err != nil {
		return p9wire.Rstatfs{}, err
	}
	reply, _, err := p9wire.DecodeRstatfs(frame)
	if err != nil {
		return p9wire.Rstatfs{}, &TransportError{Op: "Tstatfs", Err: err}
	}
	return reply, nil
}

// Clunk retires fid. The pull driver does not call Clunk (spec.md's
// documented fid leak, acceptable for one-shot sessions); long-lived
// callers should call it once a fid is no longer needed.
func (c *Client) Clunk(ctx context.Context, fid uint32) error {
	req := p9wire.Tclunk{Fid: fid}
	frame, err := c.send(ctx, "Tclunk", req.Encode, p9wire.OpRclunk)
	if err != nil {
		return err
	}
	_, _, err = p9wire.DecodeRclunk(frame)
	if err != nil {
		return &TransportError{Op: "Tclunk", Err: err}
	}
	return nil
}
