package p9wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestVersionGolden(t *testing.T) {
	m := Tversion{Msize: 8192, Version: Version9P2000L}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	// size[4] type[1]=100 tag[2]=NoTag(0) msize[4]=8192 version[2+8]
	// total frame length: 7 (header) + 4 (msize) + 2 (strlen) + 8 ("9P2000.L") = 21
	want := []byte{
		21, 0, 0, 0,
		100,
		0, 0,
		0x00, 0x20, 0x00, 0x00,
		8, 0,
	}
	want = append(want, []byte(Version9P2000L)...)
	if !bytes.Equal(buf, want) {
		t.Fatalf("got % x, want % x", buf, want)
	}
	got, rest, err := DecodeTversion(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes", len(rest))
	}
	if got.Msize != m.Msize || got.Version != m.Version {
		t.Errorf("got %+v, want %+v", got, m)
	}
}

func TestVersionTagIsFixed(t *testing.T) {
	m := Tversion{Msize: 1024, Version: Version9P2000L}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	if hdr.Tag != NoTag {
		t.Errorf("Tversion tag = %d, want NoTag", hdr.Tag)
	}
}

func TestAttachRoundTrip(t *testing.T) {
	m := Tattach{Tag: 1, Fid: 1, Afid: NoAfid, Uname: "root", Aname: "/", Nuname: NoUname}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, rest, err := DecodeTattach(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes", len(rest))
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}
}

func TestWalkRoundTrip(t *testing.T) {
	m := Twalk{Tag: 2, Fid: 1, Newfid: 2, Wnames: []string{"a", "b", "c"}}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, rest, err := DecodeTwalk(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes", len(rest))
	}
	if got.Fid != m.Fid || got.Newfid != m.Newfid || len(got.Wnames) != len(m.Wnames) {
		t.Fatalf("got %+v, want %+v", got, m)
	}
	for i := range m.Wnames {
		if got.Wnames[i] != m.Wnames[i] {
			t.Errorf("Wnames[%d] = %q, want %q", i, got.Wnames[i], m.Wnames[i])
		}
	}
}

// TestShortRwalk verifies that a reply carrying fewer Qids than the
// request's Wnames decodes cleanly: the caller, not the codec, decides
// whether that short count is a partial-walk failure.
func TestShortRwalk(t *testing.T) {
	full := Twalk{Tag: 3, Fid: 1, Newfid: 2, Wnames: []string{"a", "b", "c"}}
	if _, err := full.Encode(nil); err != nil {
		t.Fatal(err)
	}
	reply := Rwalk{Tag: 3, Qids: []Qid{{Path: 1}}}
	buf, err := reply.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeRwalk(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Qids) != 1 {
		t.Fatalf("got %d qids, want 1 (short walk)", len(got.Qids))
	}
}

func TestRlerrorRoundTripAndMessage(t *testing.T) {
	m := Rlerror{Tag: 5, Ecode: 2}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeRlerror(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}
	if got.Error() != "no such file or directory" {
		t.Errorf("Error() = %q", got.Error())
	}
	unknown := Rlerror{Tag: 5, Ecode: 9999}
	if unknown.Error() != "errno 9999" {
		t.Errorf("Error() = %q, want fallback form", unknown.Error())
	}
}

func TestReadWriteRoundTrip(t *testing.T) {
	data := []byte("hello, 9p")
	wm := Twrite{Tag: 1, Fid: 4, Offset: 100, Data: data}
	buf, err := wm.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, rest, err := DecodeTwrite(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes", len(rest))
	}
	if got.Fid != wm.Fid || got.Offset != wm.Offset || !bytes.Equal(got.Data, data) {
		t.Errorf("got %+v, want %+v", got, wm)
	}

	rm := Rread{Tag: 1, Data: data}
	buf, err = rm.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	gotR, _, err := DecodeRread(buf)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(gotR.Data, data) {
		t.Errorf("got %q, want %q", gotR.Data, data)
	}
}

func TestReaddirRoundTrip(t *testing.T) {
	dirents := []Dirent{
		{Qid: Qid{Type: QTDir, Path: 1}, Offset: 1, Type: DTDir, Name: "sub"},
		{Qid: Qid{Path: 2}, Offset: 2, Type: DTReg, Name: "file.txt"},
	}
	body, err := PutDirents(nil, dirents)
	if err != nil {
		t.Fatal(err)
	}
	m := Rreaddir{Tag: 6}
	m.Dirents = dirents
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	hdr, err := DecodeHeader(buf)
	if err != nil {
		t.Fatal(err)
	}
	payload, _, err := frameBody(buf, hdr)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(payload, body) {
		t.Fatalf("Rreaddir payload does not match raw PutDirents output")
	}
	got, _, err := DecodeRreaddir(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Dirents) != len(dirents) {
		t.Fatalf("got %d dirents, want %d", len(got.Dirents), len(dirents))
	}
}

// TestReaddirTrailingBytesRejected verifies that extra bytes in the
// outer Rreaddir frame, beyond the declared vec_lv32b byte count, are
// reported as ErrTrailingBytes rather than silently ignored.
func TestReaddirTrailingBytesRejected(t *testing.T) {
	m := Rreaddir{Tag: 6, Dirents: []Dirent{{Qid: Qid{Path: 1}, Offset: 1, Type: DTReg, Name: "a"}}}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	// Append garbage inside the frame and fix up the size field so
	// DecodeHeader/frameBody still agree on where the frame ends.
	buf = append(buf, 0xDE, 0xAD)
	buint32(buf[0:4], uint32(len(buf)))
	if _, _, err := DecodeRreaddir(buf); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("got %v, want ErrTrailingBytes", err)
	}
}

func TestOpcodeMismatch(t *testing.T) {
	m := Tattach{Tag: 1, Fid: 1, Afid: NoAfid, Uname: "root", Aname: "/"}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := DecodeTwalk(buf); !errors.Is(err, ErrOpcodeMismatch) {
		t.Fatalf("got %v, want ErrOpcodeMismatch", err)
	}
}

func TestGetattrRoundTrip(t *testing.T) {
	m := Tgetattr{Tag: 1, Fid: 3, RequestMask: GetattrBasic}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeTgetattr(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}

	reply := Rgetattr{
		Tag:   1,
		Valid: GetattrBasic,
		Qid:   Qid{Type: QTFile, Path: 9},
		Mode:  0644,
		Size:  4096,
		Atime: Timespec{Sec: 1000, Nsec: 1},
	}
	buf, err = reply.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	gotR, rest, err := DecodeRgetattr(buf)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 0 {
		t.Errorf("%d trailing bytes", len(rest))
	}
	if gotR != reply {
		t.Errorf("got %+v, want %+v", gotR, reply)
	}
}

func TestStatfsRoundTrip(t *testing.T) {
	m := Rstatfs{Tag: 1, Type: 0x01021994, Bsize: 4096, Blocks: 100, Bfree: 50, Files: 10, Namelen: 255}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeRstatfs(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}
}

func TestClunkRoundTrip(t *testing.T) {
	m := Tclunk{Tag: 1, Fid: 7}
	buf, err := m.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	got, _, err := DecodeTclunk(buf)
	if err != nil {
		t.Fatal(err)
	}
	if got != m {
		t.Errorf("got %+v, want %+v", got, m)
	}
	r := Rclunk{Tag: 1}
	buf, err = r.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := DecodeRclunk(buf); err != nil {
		t.Fatal(err)
	}
}
