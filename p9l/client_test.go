package p9l

import (
	"context"
	"errors"
	"io"
	"testing"

	"9fans.dev/p9l/internal/mockserver"
	"9fans.dev/p9l/internal/nettest"
	"9fans.dev/p9l/p9wire"
	"9fans.dev/p9l/transport"
)

// newMockClient starts a mockserver behind a PipeListener and returns a
// Client dialed against it, plus a func to shut the listener down.
func newMockClient(t *testing.T) (*Client, func()) {
	t.Helper()
	ln := &nettest.PipeListener{}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go mockserver.New().Serve(conn)
		}
	}()
	st := transport.NewStreamTransport(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return ln.Dial()
	})
	c := &Client{Transport: st}
	return c, func() { ln.Close() }
}

func TestVersionLNegotiatesL(t *testing.T) {
	c, stop := newMockClient(t)
	defer stop()
	reply, err := c.VersionL(context.Background())
	if err != nil {
		t.Fatalf("VersionL: %v", err)
	}
	if reply.Version != p9wire.Version9P2000L {
		t.Fatalf("negotiated version = %q, want %q", reply.Version, p9wire.Version9P2000L)
	}
	if c.Msize() != DefaultMaxSize {
		t.Fatalf("Msize() = %d, want %d", c.Msize(), DefaultMaxSize)
	}
}

func TestVersionLMismatch(t *testing.T) {
	c, stop := newMockClient(t)
	defer stop()
	c.Version = "9P2000.bogus"
	_, err := c.VersionL(context.Background())
	var verr *VersionMismatchError
	if !errors.As(err, &verr) {
		t.Fatalf("VersionL: want *VersionMismatchError, got %v (%T)", err, err)
	}
}

func TestAttachWalkLopenReadGetattr(t *testing.T) {
	c, stop := newMockClient(t)
	defer stop()
	ctx := context.Background()

	if _, err := c.VersionL(ctx); err != nil {
		t.Fatalf("VersionL: %v", err)
	}
	if _, err := c.Attach(ctx, 1, p9wire.NoAfid, "root", "/", p9wire.NoUname); err != nil {
		t.Fatalf("Attach: %v", err)
	}

	rwalk, err := c.Walk(ctx, 1, 2, []string{"greeting.txt"})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(rwalk.Qids) != 1 {
		t.Fatalf("Walk: got %d qids, want 1", len(rwalk.Qids))
	}

	if _, err := c.Lopen(ctx, 2, p9wire.ORdOnly); err != nil {
		t.Fatalf("Lopen: %v", err)
	}

	rread, err := c.Read(ctx, 2, 0, 4096)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	const want = "hello from the mock 9p server\n"
	if string(rread.Data) != want {
		t.Fatalf("Read.Data = %q, want %q", rread.Data, want)
	}

	rattr, err := c.Getattr(ctx, 2, p9wire.GetattrAll)
	if err != nil {
		t.Fatalf("Getattr: %v", err)
	}
	if rattr.Size != uint64(len(want)) {
		t.Fatalf("Getattr.Size = %d, want %d", rattr.Size, len(want))
	}

	if _, err := c.Statfs(ctx, 2); err != nil {
		t.Fatalf("Statfs: %v", err)
	}
	if err := c.Clunk(ctx, 2); err != nil {
		t.Fatalf("Clunk: %v", err)
	}
}

func TestWalkPartialFailureIsServerError(t *testing.T) {
	c, stop := newMockClient(t)
	defer stop()
	ctx := context.Background()

	if _, err := c.VersionL(ctx); err != nil {
		t.Fatalf("VersionL: %v", err)
	}
	if _, err := c.Attach(ctx, 1, p9wire.NoAfid, "root", "/", p9wire.NoUname); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	_, err := c.Walk(ctx, 1, 2, []string{"does-not-exist"})
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Walk into missing name: want *ServerError, got %v (%T)", err, err)
	}
	if serr.Ecode != 2 {
		t.Fatalf("ServerError.Ecode = %d, want 2 (ENOENT)", serr.Ecode)
	}
}

// TestReaddirCookieAdvance drives the full read loop the pull driver
// will use: keep calling Readdir, advancing offset by the last
// Dirent's Offset cookie, until a reply comes back empty.
func TestReaddirCookieAdvance(t *testing.T) {
	c, stop := newMockClient(t)
	defer stop()
	ctx := context.Background()

	if _, err := c.VersionL(ctx); err != nil {
		t.Fatalf("VersionL: %v", err)
	}
	if _, err := c.Attach(ctx, 1, p9wire.NoAfid, "root", "/", p9wire.NoUname); err != nil {
		t.Fatalf("Attach: %v", err)
	}
	if _, err := c.Lopen(ctx, 1, p9wire.ORdOnly); err != nil {
		t.Fatalf("Lopen: %v", err)
	}

	var names []string
	var offset uint64
	for {
		rd, err := c.Readdir(ctx, 1, offset, 4096)
		if err != nil {
			t.Fatalf("Readdir: %v", err)
		}
		if len(rd.Dirents) == 0 {
			break
		}
		for _, d := range rd.Dirents {
			names = append(names, d.Name)
			offset = d.Offset
		}
	}

	want := []string{".", "..", "greeting.txt", "sub"}
	if len(names) != len(want) {
		t.Fatalf("Readdir names = %v, want %v", names, want)
	}
	for i, n := range want {
		if names[i] != n {
			t.Fatalf("Readdir names[%d] = %q, want %q (full: %v)", i, names[i], n, names)
		}
	}
}
