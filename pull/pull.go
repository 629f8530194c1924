// Package pull implements a recursive, read-only copy of a 9P2000.L
// tree onto the local file system: the one operation a guest actually
// needs from a virtio-9p channel before its root disk is live. The
// algorithm is Attach, Walk to the root, Lopen, then Treaddir/Walk/
// Lopen/Read in recursive lockstep, grounded on p9kp's run/copydir/
// copyfile functions but adapted to advance Treaddir's offset by the
// last Dirent's cookie rather than a byte count (9P2000.L servers are
// not required to agree on how many bytes a given Dirent costs).
package pull

import (
	"context"
	"path"
	"time"

	"github.com/sirupsen/logrus"

	"9fans.dev/p9l"
	"9fans.dev/p9l/p9wire"
)

// DefaultChunkSize is used for Options.ChunkSize when it is zero.
const DefaultChunkSize = 64 * 1024

// messageOverhead is the non-payload bytes a Tread/Treaddir request
// and its reply cost on the wire (header, tag, count fields): the
// same margin p9kp's MAX_MSG_SIZE subtracts from its chunk size so a
// request built around msize never overflows it.
const messageOverhead = 11

// rootFid and rootNewfid are the fids Tree binds during Attach and the
// initial Walk; the recursive copy allocates every fid after them from
// Puller.allocFid, starting at firstFid (3).
const (
	rootFid    uint32 = 1
	rootNewfid uint32 = 2
	firstFid   uint32 = 3
)

// Options configures a Puller. The zero value is usable.
type Options struct {
	// Uname and Aname name the user and tree attached to, passed
	// verbatim to Tattach. Default to "root" and "/".
	Uname string
	Aname string

	// ChunkSize bounds the Count a single Tread or Treaddir requests.
	// Defaults to DefaultChunkSize, then is clamped to the Client's
	// negotiated Msize minus messageOverhead.
	ChunkSize uint32

	// SkipPattern holds path.Match-style glob patterns tested against
	// each entry's base name. A matching entry — devices, sockets,
	// FIFOs the server would otherwise block a Tread against — is
	// counted in Stats.Skipped and not recursed into or copied.
	SkipPattern []string

	// Logger receives per-entry progress: Info for each directory
	// entered, Debug for each file copied. Defaults to
	// logrus.StandardLogger().
	Logger *logrus.Logger
}

func (o Options) uname() string {
	if o.Uname != "" {
		return o.Uname
	}
	return "root"
}

func (o Options) aname() string {
	if o.Aname != "" {
		return o.Aname
	}
	return "/"
}

func (o Options) chunkSize() uint32 {
	if o.ChunkSize != 0 {
		return o.ChunkSize
	}
	return DefaultChunkSize
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

func (o Options) skip(name string) bool {
	for _, pat := range o.SkipPattern {
		if ok, err := path.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}

// Stats summarizes one Tree call.
type Stats struct {
	Dirs    int
	Files   int
	Bytes   int64
	Skipped int
	Elapsed time.Duration
}

// A Puller copies one attached tree onto the local file system. Fids
// are allocated monotonically starting at firstFid and never reused
// or clunked: a documented leak, acceptable because a Puller is meant
// for exactly one Tree call over a short-lived connection (spec.md's
// one-shot pull driver), not a long-running mount.
type Puller struct {
	Client  *p9l.Client
	Options Options

	nextFid uint32
}

// NewPuller returns a Puller that issues requests through c.
func NewPuller(c *p9l.Client, opts Options) *Puller {
	return &Puller{Client: c, Options: opts, nextFid: firstFid}
}

func (p *Puller) allocFid() uint32 {
	fid := p.nextFid
	p.nextFid++
	return fid
}

// Tree negotiates 9P2000.L, attaches to Options' aname as Options'
// uname, and recursively copies every entry under the attached root
// into localRoot, which must already exist. It returns Stats for the
// entries actually visited even when it returns a non-nil error,
// since a partial pull is still useful progress to report.
func (p *Puller) Tree(ctx context.Context, localRoot string) (Stats, error) {
	start := time.Now()
	st := &Stats{}

	if _, err := p.Client.VersionL(ctx); err != nil {
		return *st, err
	}
	if _, err := p.Client.Attach(ctx, rootFid, p9wire.NoAfid, p.Options.uname(), p.Options.aname(), p9wire.NoUname); err != nil {
		return *st, err
	}
	if _, err := p.Client.Walk(ctx, rootFid, rootNewfid, nil); err != nil {
		return *st, err
	}
	if _, err := p.Client.Lopen(ctx, rootNewfid, p9wire.ORdOnly); err != nil {
		return *st, err
	}

	err := p.copyDir(ctx, rootNewfid, localRoot, st)
	st.Elapsed = time.Since(start)
	return *st, err
}

// effectiveCount returns the Count to request in a single Tread or
// Treaddir, bounded by both Options.ChunkSize and the connection's
// negotiated Msize.
func (p *Puller) effectiveCount() uint32 {
	n := p.Options.chunkSize()
	if msize := p.Client.Msize(); msize > messageOverhead && msize-messageOverhead < n {
		n = msize - messageOverhead
	}
	return n
}

// isDir reports whether a directory entry names a subdirectory,
// checking both the Qid's type bit and the host DT_* type QEMU's
// 9p2000.L server attaches to each Dirent: QEMU only populates the
// Qid with the entry's real type and falls back to the glibc DT_*
// extension for Dirent.Type, so a correct client has to check both.
func isDir(d p9wire.Dirent) bool {
	return d.Qid.IsDir() || d.Type == p9wire.DTDir
}
