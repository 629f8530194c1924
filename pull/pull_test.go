package pull

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"9fans.dev/p9l"
	"9fans.dev/p9l/internal/mockserver"
	"9fans.dev/p9l/internal/nettest"
	"9fans.dev/p9l/transport"
)

func newMockClient(t *testing.T) *p9l.Client {
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
	t.Cleanup(func() { ln.Close() })
	st := transport.NewStreamTransport(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return ln.Dial()
	})
	return &p9l.Client{Transport: st}
}

func TestTreeCopiesFixedTree(t *testing.T) {
	dir := t.TempDir()
	c := newMockClient(t)
	p := NewPuller(c, Options{ChunkSize: 32})

	st, err := p.Tree(context.Background(), dir)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if st.Files != 2 || st.Dirs != 1 {
		t.Fatalf("Stats = %+v, want 2 files and 1 dir", st)
	}

	greeting, err := os.ReadFile(filepath.Join(dir, "greeting.txt"))
	if err != nil {
		t.Fatalf("reading greeting.txt: %v", err)
	}
	if want := "hello from the mock 9p server\n"; string(greeting) != want {
		t.Fatalf("greeting.txt = %q, want %q", greeting, want)
	}

	nested, err := os.ReadFile(filepath.Join(dir, "sub", "nested.txt"))
	if err != nil {
		t.Fatalf("reading sub/nested.txt: %v", err)
	}
	if want := "nested file contents\n"; string(nested) != want {
		t.Fatalf("sub/nested.txt = %q, want %q", nested, want)
	}

	if st.Bytes != int64(len(greeting)+len(nested)) {
		t.Fatalf("Stats.Bytes = %d, want %d", st.Bytes, len(greeting)+len(nested))
	}
}

func TestTreeHonorsSkipPattern(t *testing.T) {
	dir := t.TempDir()
	c := newMockClient(t)
	p := NewPuller(c, Options{SkipPattern: []string{"sub"}})

	st, err := p.Tree(context.Background(), dir)
	if err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if st.Skipped != 1 {
		t.Fatalf("Stats.Skipped = %d, want 1", st.Skipped)
	}
	if st.Dirs != 0 {
		t.Fatalf("Stats.Dirs = %d, want 0 (sub should have been skipped)", st.Dirs)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); !os.IsNotExist(err) {
		t.Fatalf("sub should not have been created, stat err = %v", err)
	}
}

func TestTreeAllocatesFidsMonotonically(t *testing.T) {
	dir := t.TempDir()
	c := newMockClient(t)
	p := NewPuller(c, Options{})

	if p.nextFid != firstFid {
		t.Fatalf("nextFid = %d before Tree, want %d", p.nextFid, firstFid)
	}
	if _, err := p.Tree(context.Background(), dir); err != nil {
		t.Fatalf("Tree: %v", err)
	}
	if p.nextFid <= firstFid {
		t.Fatalf("nextFid = %d after Tree, want > %d", p.nextFid, firstFid)
	}
}
