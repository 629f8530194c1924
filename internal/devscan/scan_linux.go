package devscan

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"sort"

	"9fans.dev/p9l"
	"9fans.dev/p9l/p9wire"
	"9fans.dev/p9l/transport"
)

// scanRoot and globSuffix are vars, not consts, so tests can point
// discover at a fixture directory instead of the real device tree.
var (
	scanRoot   = "/devices/pci@0,0"
	globSuffix = "*:9p"
)

// probeBufSize bounds the single read(2) used to receive an Rversion
// reply while probing a candidate device; well above any Rversion's
// real size.
const probeBufSize = 8192

func discover(ctx context.Context) (Found, error) {
	matches, err := filepath.Glob(filepath.Join(scanRoot, globSuffix))
	if err != nil {
		return Found{}, err
	}
	sort.Strings(matches)

	for _, path := range matches {
		if ctx.Err() != nil {
			return Found{}, ctx.Err()
		}
		found, ok := probe(ctx, path)
		if ok {
			return found, nil
		}
	}
	return Found{}, ErrNotFound
}

// probe opens path, negotiates 9P2000.L over it, and closes it again;
// the caller reopens the winning path to build its long-lived Client.
func probe(ctx context.Context, path string) (Found, bool) {
	info, err := os.Stat(path)
	if err != nil || info.Mode()&os.ModeCharDevice == 0 {
		return Found{}, false
	}

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		return os.OpenFile(path, os.O_RDWR, 0)
	}
	rt := transport.NewRecordTransport(dial, probeBufSize)
	defer rt.Close()

	c := &p9l.Client{Transport: rt, Version: p9wire.Version9P2000L}
	reply, err := c.VersionL(ctx)
	if err != nil {
		return Found{}, false
	}
	return Found{Path: path, Msize: reply.Msize, Version: reply.Version}, true
}
