package pull

import (
	"context"
	"fmt"
	"os"

	"9fans.dev/p9l/p9wire"
)

// copyFile opens fid for reading and streams it into a freshly
// truncated local file at localPath, chunkSize bytes at a time, until
// an empty Rread signals EOF. It returns the number of bytes written.
func (p *Puller) copyFile(ctx context.Context, fid uint32, localPath string) (int64, error) {
	if _, err := p.Client.Lopen(ctx, fid, p9wire.ORdOnly); err != nil {
		return 0, fmt.Errorf("lopen: %w", err)
	}

	f, err := os.OpenFile(localPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return 0, fmt.Errorf("open local file: %w", err)
	}
	defer f.Close()

	var written int64
	var offset uint64
	count := p.effectiveCount()
	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		reply, err := p.Client.Read(ctx, fid, offset, count)
		if err != nil {
			return written, fmt.Errorf("read at %d: %w", offset, err)
		}
		if len(reply.Data) == 0 {
			return written, nil
		}
		n, err := f.Write(reply.Data)
		if err != nil {
			return written, fmt.Errorf("write local file: %w", err)
		}
		written += int64(n)
		offset += uint64(n)
	}
}
