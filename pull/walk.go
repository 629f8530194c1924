package pull

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"9fans.dev/p9l/p9wire"
)

// copyDir reads every entry of the directory open on fid and either
// recurses into a subdirectory (after mkdir'ing its local counterpart)
// or copies a regular file, skipping "." and ".." and anything
// matching Options.SkipPattern. localDir must already exist.
func (p *Puller) copyDir(ctx context.Context, fid uint32, localDir string, st *Stats) error {
	var offset uint64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		reply, err := p.Client.Readdir(ctx, fid, offset, p.effectiveCount())
		if err != nil {
			return fmt.Errorf("pull: readdir %s: %w", localDir, err)
		}
		if len(reply.Dirents) == 0 {
			return nil
		}
		for _, ent := range reply.Dirents {
			offset = ent.Offset
			if ent.Name == "." || ent.Name == ".." {
				continue
			}
			if p.Options.skip(ent.Name) {
				st.Skipped++
				continue
			}
			if err := p.copyEntry(ctx, fid, ent, localDir, st); err != nil {
				return err
			}
		}
	}
}

// copyEntry dispatches a single Dirent to either the directory or
// file path, walking a fresh fid to it first.
func (p *Puller) copyEntry(ctx context.Context, parentFid uint32, ent p9wire.Dirent, localDir string, st *Stats) error {
	newfid := p.allocFid()
	if _, err := p.Client.Walk(ctx, parentFid, newfid, []string{ent.Name}); err != nil {
		return fmt.Errorf("pull: walk %s/%s: %w", localDir, ent.Name, err)
	}
	local := filepath.Join(localDir, ent.Name)

	if isDir(ent) {
		p.Options.logger().Infof("pull: entering directory %s", local)
		if _, err := p.Client.Lopen(ctx, newfid, p9wire.ORdOnly); err != nil {
			return fmt.Errorf("pull: lopen %s: %w", local, err)
		}
		if err := os.MkdirAll(local, 0755); err != nil {
			return fmt.Errorf("pull: mkdir %s: %w", local, err)
		}
		st.Dirs++
		return p.copyDir(ctx, newfid, local, st)
	}

	p.Options.logger().Debugf("pull: copying file %s", local)
	n, err := p.copyFile(ctx, newfid, local)
	if err != nil {
		return fmt.Errorf("pull: copy %s: %w", local, err)
	}
	st.Files++
	st.Bytes += n
	return nil
}
