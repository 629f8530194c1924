// Package mockserver implements a minimal in-memory 9P2000.L server
// good enough to drive the pull driver's integration test: it serves
// a fixed two-level tree and understands exactly the messages the
// pull driver and the p9l client's own tests issue.
package mockserver

import (
	"bufio"
	"encoding/binary"
	"io"
	"sync"

	"9fans.dev/p9l/p9wire"
)

// node is one entry in the served tree.
type node struct {
	name     string
	qid      p9wire.Qid
	isDir    bool
	children []*node
	data     []byte
}

// Tree returns the fixed tree this package's tests pull from:
//
//	/
//	  greeting.txt
//	  sub/
//	    nested.txt
func Tree() *node {
	var path uint64
	next := func(dir bool) p9wire.Qid {
		path++
		typ := uint8(0)
		if dir {
			typ = p9wire.QTDir
		}
		return p9wire.Qid{Type: typ, Path: path}
	}
	nested := &node{name: "nested.txt", qid: next(false), data: []byte("nested file contents\n")}
	sub := &node{name: "sub", qid: next(true), isDir: true, children: []*node{nested}}
	greeting := &node{name: "greeting.txt", qid: next(false), data: []byte("hello from the mock 9p server\n")}
	return &node{name: "/", qid: next(true), isDir: true, children: []*node{greeting, sub}}
}

func (n *node) child(name string) *node {
	for _, c := range n.children {
		if c.name == name {
			return c
		}
	}
	return nil
}

// listing returns n's directory entries, including "." and "..", with
// an Offset cookie equal to the entry's 1-indexed position: the same
// numbering a real getdents(2)-backed server would use, so the pull
// driver's "advance offset by the last Dirent's cookie" logic is
// genuinely exercised.
func (n *node) listing() []p9wire.Dirent {
	entries := make([]p9wire.Dirent, 0, len(n.children)+2)
	entries = append(entries, p9wire.Dirent{Qid: n.qid, Type: p9wire.DTDir, Name: "."})
	entries = append(entries, p9wire.Dirent{Qid: n.qid, Type: p9wire.DTDir, Name: ".."})
	for _, c := range n.children {
		typ := p9wire.DTReg
		if c.isDir {
			typ = p9wire.DTDir
		}
		entries = append(entries, p9wire.Dirent{Qid: c.qid, Type: typ, Name: c.name})
	}
	for i := range entries {
		entries[i].Offset = uint64(i + 1)
	}
	return entries
}

type fidState struct {
	node *node
}

// Server serves a fixed tree to exactly one connection at a time.
type Server struct {
	root *node

	mu   sync.Mutex
	fids map[uint32]*fidState
}

// New returns a Server serving Tree().
func New() *Server {
	return &Server{root: Tree(), fids: make(map[uint32]*fidState)}
}

// Serve reads requests from rwc until it returns an error (typically
// io.EOF when the client is done), replying to each in turn. It never
// returns nil; callers should treat io.EOF as a clean shutdown.
func (s *Server) Serve(rwc io.ReadWriteCloser) error {
	br := bufio.NewReader(rwc)
	for {
		frame, err := readFrame(br)
		if err != nil {
			return err
		}
		reply, err := s.dispatch(frame)
		if err != nil {
			return err
		}
		if _, err := rwc.Write(reply); err != nil {
			return err
		}
	}
}

func readFrame(br *bufio.Reader) ([]byte, error) {
	var sizeBuf [4]byte
	if _, err := io.ReadFull(br, sizeBuf[:]); err != nil {
		return nil, err
	}
	size := binary.LittleEndian.Uint32(sizeBuf[:])
	frame := make([]byte, size)
	copy(frame, sizeBuf[:])
	if _, err := io.ReadFull(br, frame[4:]); err != nil {
		return nil, err
	}
	return frame, nil
}

func (s *Server) dispatch(frame []byte) ([]byte, error) {
	hdr, err := p9wire.DecodeHeader(frame)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch hdr.Type {
	case p9wire.OpTversion:
		req, _, err := p9wire.DecodeTversion(frame)
		if err != nil {
			return nil, err
		}
		version := req.Version
		if version != p9wire.Version9P2000L {
			version = "unknown"
		}
		return p9wire.Rversion{Msize: req.Msize, Version: version}.Encode(nil)

	case p9wire.OpTattach:
		req, _, err := p9wire.DecodeTattach(frame)
		if err != nil {
			return nil, err
		}
		s.fids[req.Fid] = &fidState{node: s.root}
		return p9wire.Rattach{Qid: s.root.qid}.Encode(nil)

	case p9wire.OpTwalk:
		req, _, err := p9wire.DecodeTwalk(frame)
		if err != nil {
			return nil, err
		}
		return s.handleWalk(req)

	case p9wire.OpTlopen:
		req, _, err := p9wire.DecodeTlopen(frame)
		if err != nil {
			return nil, err
		}
		fs, ok := s.fids[req.Fid]
		if !ok {
			return rlerrorFrame(9) // EBADF
		}
		return p9wire.Rlopen{Qid: fs.node.qid, Iounit: 0}.Encode(nil)

	case p9wire.OpTreaddir:
		req, _, err := p9wire.DecodeTreaddir(frame)
		if err != nil {
			return nil, err
		}
		return s.handleReaddir(req)

	case p9wire.OpTread:
		req, _, err := p9wire.DecodeTread(frame)
		if err != nil {
			return nil, err
		}
		return s.handleRead(req)

	case p9wire.OpTclunk:
		req, _, err := p9wire.DecodeTclunk(frame)
		if err != nil {
			return nil, err
		}
		delete(s.fids, req.Fid)
		return p9wire.Rclunk{}.Encode(nil)

	case p9wire.OpTstatfs:
		req, _, err := p9wire.DecodeTstatfs(frame)
		if err != nil {
			return nil, err
		}
		if _, ok := s.fids[req.Fid]; !ok {
			return rlerrorFrame(9)
		}
		return p9wire.Rstatfs{Type: 0x01021997, Bsize: 4096, Namelen: 255}.Encode(nil)

	case p9wire.OpTgetattr:
		req, _, err := p9wire.DecodeTgetattr(frame)
		if err != nil {
			return nil, err
		}
		fs, ok := s.fids[req.Fid]
		if !ok {
			return rlerrorFrame(9)
		}
		mode := uint32(0644)
		size := uint64(len(fs.node.data))
		if fs.node.isDir {
			mode = 0755 | 040000
		}
		return p9wire.Rgetattr{Valid: req.RequestMask, Qid: fs.node.qid, Mode: mode, Size: size}.Encode(nil)

	default:
		return rlerrorFrame(38) // ENOSYS
	}
}

func (s *Server) handleWalk(req p9wire.Twalk) ([]byte, error) {
	fs, ok := s.fids[req.Fid]
	if !ok {
		return rlerrorFrame(9)
	}
	cur := fs.node
	qids := make([]p9wire.Qid, 0, len(req.Wnames))
	for _, name := range req.Wnames {
		next := cur.child(name)
		if next == nil {
			break
		}
		qids = append(qids, next.qid)
		cur = next
	}
	if len(req.Wnames) > 0 && len(qids) == 0 {
		return rlerrorFrame(2) // ENOENT
	}
	if len(qids) == len(req.Wnames) {
		s.fids[req.Newfid] = &fidState{node: cur}
	}
	return p9wire.Rwalk{Qids: qids}.Encode(nil)
}

func (s *Server) handleReaddir(req p9wire.Treaddir) ([]byte, error) {
	fs, ok := s.fids[req.Fid]
	if !ok {
		return rlerrorFrame(9)
	}
	if !fs.node.isDir {
		return rlerrorFrame(20) // ENOTDIR
	}
	all := fs.node.listing()
	start := int(req.Offset)
	if start >= len(all) {
		return p9wire.Rreaddir{}.Encode(nil)
	}
	// Return entries a few at a time so the pull driver's read loop is
	// genuinely exercised across more than one Treaddir round trip.
	const perCall = 2
	end := start + perCall
	if end > len(all) {
		end = len(all)
	}
	return p9wire.Rreaddir{Dirents: all[start:end]}.Encode(nil)
}

func (s *Server) handleRead(req p9wire.Tread) ([]byte, error) {
	fs, ok := s.fids[req.Fid]
	if !ok {
		return rlerrorFrame(9)
	}
	data := fs.node.data
	if req.Offset >= uint64(len(data)) {
		return p9wire.Rread{}.Encode(nil)
	}
	end := req.Offset + uint64(req.Count)
	if end > uint64(len(data)) {
		end = uint64(len(data))
	}
	return p9wire.Rread{Data: data[req.Offset:end]}.Encode(nil)
}

func rlerrorFrame(ecode uint32) ([]byte, error) {
	return p9wire.Rlerror{Ecode: ecode}.Encode(nil)
}
