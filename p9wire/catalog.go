package p9wire

import (
	"fmt"
)

// Message type opcodes. Each T-message is even, its matching R-message
// is one higher, per the 9P2000.L convention. The set below is the
// "later, more complete" catalog spec.md §9 calls for: Rgetattr is 25
// (not the typo'd 24 some server implementations ship), and 9P2000.P4
// is a recognized version token even though it has no opcodes of its
// own — it reuses the 9P2000.L message set.
// Opcode constants are unexported (msgTversion, not Tversion) because
// the exported names are reserved for the typed message structs below,
// the same split the teacher's styxproto package draws between its
// private msgTversion opcode constants (limits.go, parse.go) and its
// exported Tversion view type.
const (
	msgUnknown uint8 = 0

	msgTlerror uint8 = 6
	msgRlerror uint8 = 7

	msgTstatfs uint8 = 8
	msgRstatfs uint8 = 9

	msgTlopen uint8 = 12
	msgRlopen uint8 = 13

	msgTlcreate uint8 = 14
	msgRlcreate uint8 = 15

	msgTsymlink uint8 = 16
	msgRsymlink uint8 = 17

	msgTmknod uint8 = 18
	msgRmknod uint8 = 19

	msgTrename uint8 = 20
	msgRrename uint8 = 21

	msgTreadlink uint8 = 22
	msgRreadlink uint8 = 23

	msgTgetattr uint8 = 24
	msgRgetattr uint8 = 25

	msgTsetattr uint8 = 26
	msgRsetattr uint8 = 27

	msgTxattrwalk uint8 = 30
	msgRxattrwalk uint8 = 31

	msgTxattrcreate uint8 = 32
	msgRxattrcreate uint8 = 33

	msgTreaddir uint8 = 40
	msgRreaddir uint8 = 41

	msgTfsync uint8 = 50
	msgRfsync uint8 = 51

	msgTlock uint8 = 52
	msgRlock uint8 = 53

	msgTgetlock uint8 = 54
	msgRgetlock uint8 = 55

	msgTlink uint8 = 70
	msgRlink uint8 = 71

	msgTmkdir uint8 = 72
	msgRmkdir uint8 = 73

	msgTrenameat uint8 = 74
	msgRrenameat uint8 = 75

	msgTunlinkat uint8 = 76
	msgRunlinkat uint8 = 77

	msgTversion uint8 = 100
	msgRversion uint8 = 101

	msgTauth uint8 = 102
	msgRauth uint8 = 103

	msgTattach uint8 = 104
	msgRattach uint8 = 105

	msgTflush uint8 = 108
	msgRflush uint8 = 109

	msgTwalk uint8 = 110
	msgRwalk uint8 = 111

	msgTread uint8 = 116
	msgRread uint8 = 117

	msgTwrite uint8 = 118
	msgRwrite uint8 = 119

	msgTclunk uint8 = 120
	msgRclunk uint8 = 121
)

// opcodeNames is used only for diagnostics (String methods, log
// lines); it is not consulted by the codec itself.
var opcodeNames = map[uint8]string{
	msgTlerror: "Tlerror", msgRlerror: "Rlerror",
	msgTstatfs: "Tstatfs", msgRstatfs: "Rstatfs",
	msgTlopen: "Tlopen", msgRlopen: "Rlopen",
	msgTlcreate: "Tlcreate", msgRlcreate: "Rlcreate",
	msgTsymlink: "Tsymlink", msgRsymlink: "Rsymlink",
	msgTmknod: "Tmknod", msgRmknod: "Rmknod",
	msgTrename: "Trename", msgRrename: "Rrename",
	msgTreadlink: "Treadlink", msgRreadlink: "Rreadlink",
	msgTgetattr: "Tgetattr", msgRgetattr: "Rgetattr",
	msgTsetattr: "Tsetattr", msgRsetattr: "Rsetattr",
	msgTxattrwalk: "Txattrwalk", msgRxattrwalk: "Rxattrwalk",
	msgTxattrcreate: "Txattrcreate", msgRxattrcreate: "Rxattrcreate",
	msgTreaddir: "Treaddir", msgRreaddir: "Rreaddir",
	msgTfsync: "Tfsync", msgRfsync: "Rfsync",
	msgTlock: "Tlock", msgRlock: "Rlock",
	msgTgetlock: "Tgetlock", msgRgetlock: "Rgetlock",
	msgTlink: "Tlink", msgRlink: "Rlink",
	msgTmkdir: "Tmkdir", msgRmkdir: "Rmkdir",
	msgTrenameat: "Trenameat", msgRrenameat: "Rrenameat",
	msgTunlinkat: "Tunlinkat", msgRunlinkat: "Runlinkat",
	msgTversion: "Tversion", msgRversion: "Rversion",
	msgTauth: "Tauth", msgRauth: "Rauth",
	msgTattach: "Tattach", msgRattach: "Rattach",
	msgTflush: "Tflush", msgRflush: "Rflush",
	msgTwalk: "Twalk", msgRwalk: "Rwalk",
	msgTread: "Tread", msgRread: "Rread",
	msgTwrite: "Twrite", msgRwrite: "Rwrite",
	msgTclunk: "Tclunk", msgRclunk: "Rclunk",
}

// R-message opcodes, exported so client-side code can dispatch on the
// type byte read from a Header without needing its own copy of the
// catalog's numbering.
const (
	OpRlerror  = msgRlerror
	OpRstatfs  = msgRstatfs
	OpRlopen   = msgRlopen
	OpRgetattr = msgRgetattr
	OpRreaddir = msgRreaddir
	OpRversion = msgRversion
	OpRattach  = msgRattach
	OpRwalk    = msgRwalk
	OpRread    = msgRread
	OpRwrite   = msgRwrite
	OpRclunk   = msgRclunk
)

// T-message opcodes, exported for server-side code (internal/mockserver,
// and any future styxserver-style listener) that must dispatch on an
// incoming request's type byte without its own copy of the catalog.
const (
	OpTversion = msgTversion
	OpTattach  = msgTattach
	OpTwalk    = msgTwalk
	OpTlopen   = msgTlopen
	OpTreaddir = msgTreaddir
	OpTread    = msgTread
	OpTwrite   = msgTwrite
	OpTclunk   = msgTclunk
	OpTstatfs  = msgTstatfs
	OpTgetattr = msgTgetattr
)

// OpcodeName returns a human-readable name for a message type, or
// "opcode(N)" if op is not in the catalog.
func OpcodeName(op uint8) string {
	if name, ok := opcodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", op)
}

// Recognized protocol version tokens.
const (
	Version9P2000  = "9P2000"
	Version9P2000U = "9P2000.U"
	Version9P2000L = "9P2000.L"
	Version9P2000P4 = "9P2000.P4"
)

// NoFid, NoAfid, and NoUname are fid/uid sentinels meaning "none"
// (spec.md §3). NoTag is the one tag value this implementation ever
// sends, since the request engine never multiplexes.
const (
	NoFid   uint32 = 0xFFFFFFFF
	NoAfid  uint32 = 0xFFFFFFFF
	NoUname uint32 = 0xFFFFFFFF
	NoTag   uint16 = 0
)

// HeaderLen is the length, in bytes, of the size/type/tag frame header
// common to every 9P message.
const HeaderLen = 4 + 1 + 2

// Header is the framing-only view of a message: enough to dispatch on
// type before the payload's shape is known (spec.md's "Partial" decode).
type Header struct {
	Size uint32
	Type uint8
	Tag  uint16
}

// DecodeHeader reads the size/type/tag header from the front of b. It
// does not validate that len(b) matches Size; callers that read framed
// transports already know they have exactly one frame.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderLen {
		return Header{}, fmt.Errorf("header: %w", ErrUnexpectedEOF)
	}
	return Header{
		Size: guint32(b[0:4]),
		Type: b[4],
		Tag:  guint16(b[5:7]),
	}, nil
}

// putHeader appends a size/type/tag header to buf.
func putHeader(buf []byte, size uint32, typ uint8, tag uint16) []byte {
	var b [HeaderLen]byte
	buint32(b[0:4], size)
	b[4] = typ
	buint16(b[5:7], tag)
	return append(buf, b[:]...)
}

// checkOpcode returns ErrOpcodeMismatch wrapped with context if got
// isn't want.
func checkOpcode(want, got uint8) error {
	if want != got {
		return fmt.Errorf("expected %s, got %s: %w", OpcodeName(want), OpcodeName(got), ErrOpcodeMismatch)
	}
	return nil
}

// finishFrame overwrites the size field of a frame built by append-only
// encoding, per spec.md's invariant that size must equal the frame's
// actual byte length rather than a value computed ahead of time and
// trusted.
func finishFrame(buf []byte, start int) []byte {
	buint32(buf[start:start+4], uint32(len(buf)-start))
	return buf
}
