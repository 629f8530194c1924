package p9wire

import "fmt"

// Getattr request-mask bits, selecting which Rgetattr fields the
// server should populate.
const (
	GetattrMode        uint64 = 0x1
	GetattrNlink       uint64 = 0x2
	GetattrUID         uint64 = 0x4
	GetattrGID         uint64 = 0x8
	GetattrRdev        uint64 = 0x10
	GetattrAtime       uint64 = 0x20
	GetattrMtime       uint64 = 0x40
	GetattrCtime       uint64 = 0x80
	GetattrIno         uint64 = 0x100
	GetattrSize        uint64 = 0x200
	GetattrBlocks      uint64 = 0x400
	GetattrBtime       uint64 = 0x800
	GetattrGen         uint64 = 0x1000
	GetattrDataVersion uint64 = 0x2000
	GetattrBasic       uint64 = 0x7ff
	GetattrAll         uint64 = 0x3fff
)

// Tgetattr requests attributes of the object referenced by Fid. Only
// the fields named in RequestMask are guaranteed populated in the
// reply.
type Tgetattr struct {
	Tag         uint16
	Fid         uint32
	RequestMask uint64
}

func (m Tgetattr) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTgetattr, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU64(m.RequestMask)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTgetattr(b []byte) (Tgetattr, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tgetattr{}, nil, err
	}
	if err := checkOpcode(msgTgetattr, hdr.Type); err != nil {
		return Tgetattr{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tgetattr{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tgetattr{}, nil, fmt.Errorf("Tgetattr.Fid: %w", err)
	}
	mask, body, err := getU64(body)
	if err != nil {
		return Tgetattr{}, nil, fmt.Errorf("Tgetattr.RequestMask: %w", err)
	}
	if len(body) != 0 {
		return Tgetattr{}, nil, fmt.Errorf("Tgetattr: %w", ErrTrailingBytes)
	}
	return Tgetattr{Tag: hdr.Tag, Fid: fid, RequestMask: mask}, rest, nil
}

// Timespec is a POSIX-style (seconds, nanoseconds) timestamp pair, as
// used by the atime/mtime/ctime/btime fields of Rgetattr.
type Timespec struct {
	Sec  uint64
	Nsec uint64
}

// Rgetattr is the server's reply to Tgetattr. Valid mirrors the
// request mask, naming which fields the server actually populated.
type Rgetattr struct {
	Tag         uint16
	Valid       uint64
	Qid         Qid
	Mode        uint32
	UID         uint32
	GID         uint32
	Nlink       uint64
	Rdev        uint64
	Size        uint64
	Blksize     uint64
	Blocks      uint64
	Atime       Timespec
	Mtime       Timespec
	Ctime       Timespec
	Btime       Timespec
	Gen         uint64
	DataVersion uint64
}

func (m Rgetattr) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRgetattr, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU64(m.Valid)
	w.PutQid(m.Qid)
	w.PutU32(m.Mode)
	w.PutU32(m.UID)
	w.PutU32(m.GID)
	w.PutU64(m.Nlink)
	w.PutU64(m.Rdev)
	w.PutU64(m.Size)
	w.PutU64(m.Blksize)
	w.PutU64(m.Blocks)
	w.PutU64(m.Atime.Sec)
	w.PutU64(m.Atime.Nsec)
	w.PutU64(m.Mtime.Sec)
	w.PutU64(m.Mtime.Nsec)
	w.PutU64(m.Ctime.Sec)
	w.PutU64(m.Ctime.Nsec)
	w.PutU64(m.Btime.Sec)
	w.PutU64(m.Btime.Nsec)
	w.PutU64(m.Gen)
	w.PutU64(m.DataVersion)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRgetattr(b []byte) (Rgetattr, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rgetattr{}, nil, err
	}
	if err := checkOpcode(msgRgetattr, hdr.Type); err != nil {
		return Rgetattr{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rgetattr{}, nil, err
	}

	var m Rgetattr
	m.Tag = hdr.Tag

	read64 := func(name string, dst *uint64) {
		if err != nil {
			return
		}
		*dst, body, err = getU64(body)
		if err != nil {
			err = fmt.Errorf("Rgetattr.%s: %w", name, err)
		}
	}
	read32 := func(name string, dst *uint32) {
		if err != nil {
			return
		}
		*dst, body, err = getU32(body)
		if err != nil {
			err = fmt.Errorf("Rgetattr.%s: %w", name, err)
		}
	}

	read64("Valid", &m.Valid)
	if err != nil {
		return Rgetattr{}, nil, err
	}
	m.Qid, body, err = DecodeQid(body)
	if err != nil {
		return Rgetattr{}, nil, fmt.Errorf("Rgetattr.Qid: %w", err)
	}
	read32("Mode", &m.Mode)
	read32("UID", &m.UID)
	read32("GID", &m.GID)
	read64("Nlink", &m.Nlink)
	read64("Rdev", &m.Rdev)
	read64("Size", &m.Size)
	read64("Blksize", &m.Blksize)
	read64("Blocks", &m.Blocks)
	read64("Atime.Sec", &m.Atime.Sec)
	read64("Atime.Nsec", &m.Atime.Nsec)
	read64("Mtime.Sec", &m.Mtime.Sec)
	read64("Mtime.Nsec", &m.Mtime.Nsec)
	read64("Ctime.Sec", &m.Ctime.Sec)
	read64("Ctime.Nsec", &m.Ctime.Nsec)
	read64("Btime.Sec", &m.Btime.Sec)
	read64("Btime.Nsec", &m.Btime.Nsec)
	read64("Gen", &m.Gen)
	read64("DataVersion", &m.DataVersion)
	if err != nil {
		return Rgetattr{}, nil, err
	}
	if len(body) != 0 {
		return Rgetattr{}, nil, fmt.Errorf("Rgetattr: %w", ErrTrailingBytes)
	}
	return m, rest, nil
}

// Tstatfs requests file system information for the tree containing
// Fid.
type Tstatfs struct {
	Tag uint16
	Fid uint32
}

func (m Tstatfs) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgTstatfs, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTstatfs(b []byte) (Tstatfs, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Tstatfs{}, nil, err
	}
	if err := checkOpcode(msgTstatfs, hdr.Type); err != nil {
		return Tstatfs{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Tstatfs{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Tstatfs{}, nil, fmt.Errorf("Tstatfs.Fid: %w", err)
	}
	if len(body) != 0 {
		return Tstatfs{}, nil, fmt.Errorf("Tstatfs: %w", ErrTrailingBytes)
	}
	return Tstatfs{Tag: hdr.Tag, Fid: fid}, rest, nil
}

// Rstatfs mirrors the fields returned by the statfs(2) system call.
type Rstatfs struct {
	Tag     uint16
	Type    uint32
	Bsize   uint32
	Blocks  uint64
	Bfree   uint64
	Bavail  uint64
	Files   uint64
	Ffree   uint64
	Fsid    uint64
	Namelen uint32
}

func (m Rstatfs) Encode(buf []byte) ([]byte, error) {
	start := len(buf)
	buf = putHeader(buf, 0, msgRstatfs, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Type)
	w.PutU32(m.Bsize)
	w.PutU64(m.Blocks)
	w.PutU64(m.Bfree)
	w.PutU64(m.Bavail)
	w.PutU64(m.Files)
	w.PutU64(m.Ffree)
	w.PutU64(m.Fsid)
	w.PutU32(m.Namelen)
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRstatfs(b []byte) (Rstatfs, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rstatfs{}, nil, err
	}
	if err := checkOpcode(msgRstatfs, hdr.Type); err != nil {
		return Rstatfs{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rstatfs{}, nil, err
	}
	var m Rstatfs
	m.Tag = hdr.Tag
	m.Type, body, err = getU32(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Type: %w", err)
	}
	m.Bsize, body, err = getU32(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Bsize: %w", err)
	}
	m.Blocks, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Blocks: %w", err)
	}
	m.Bfree, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Bfree: %w", err)
	}
	m.Bavail, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Bavail: %w", err)
	}
	m.Files, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Files: %w", err)
	}
	m.Ffree, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Ffree: %w", err)
	}
	m.Fsid, body, err = getU64(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Fsid: %w", err)
	}
	m.Namelen, body, err = getU32(body)
	if err != nil {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs.Namelen: %w", err)
	}
	if len(body) != 0 {
		return Rstatfs{}, nil, fmt.Errorf("Rstatfs: %w", ErrTrailingBytes)
	}
	return m, rest, nil
}
