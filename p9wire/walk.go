package p9wire

import "fmt"

// MaxWElem is the maximum number of path elements a single Twalk may
// carry, matching the teacher's styxproto.MaxWElem limit.
const MaxWElem = 16

// Twalk descends zero or more path elements from Fid and, if every
// element is resolved, associates the result with Newfid. An empty
// Wnames clones Fid to Newfid in place (spec.md §3 invariant).
type Twalk struct {
	Tag    uint16
	Fid    uint32
	Newfid uint32
	Wnames []string
}

func (m Twalk) Encode(buf []byte) ([]byte, error) {
	if len(m.Wnames) > MaxWElem {
		return nil, fmt.Errorf("Twalk: %d wname elements: %w", len(m.Wnames), ErrEncodeOverflow)
	}
	for _, name := range m.Wnames {
		if _, err := stringEncodedLen(name); err != nil {
			return nil, err
		}
	}
	start := len(buf)
	buf = putHeader(buf, 0, msgTwalk, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	w.PutU32(m.Fid)
	w.PutU32(m.Newfid)
	if err := PutVec16(w, len(m.Wnames), func(i int) { w.PutString(m.Wnames[i]) }); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeTwalk(b []byte) (Twalk, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Twalk{}, nil, err
	}
	if err := checkOpcode(msgTwalk, hdr.Type); err != nil {
		return Twalk{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Twalk{}, nil, err
	}
	fid, body, err := getU32(body)
	if err != nil {
		return Twalk{}, nil, fmt.Errorf("Twalk.Fid: %w", err)
	}
	newfid, body, err := getU32(body)
	if err != nil {
		return Twalk{}, nil, fmt.Errorf("Twalk.Newfid: %w", err)
	}
	var wnames []string
	_, body, err = GetVec16(body, func(i int, b []byte) ([]byte, error) {
		name, rest, err := getString(b)
		if err != nil {
			return nil, fmt.Errorf("Twalk.Wname[%d]: %w", i, err)
		}
		wnames = append(wnames, name)
		return rest, nil
	})
	if err != nil {
		return Twalk{}, nil, err
	}
	if len(body) != 0 {
		return Twalk{}, nil, fmt.Errorf("Twalk: %w", ErrTrailingBytes)
	}
	return Twalk{Tag: hdr.Tag, Fid: fid, Newfid: newfid, Wnames: wnames}, rest, nil
}

// Rwalk carries one Qid per successfully walked path element. A short
// Rwalk (fewer Qids than the Twalk's Wnames) means the walk stopped
// partway — spec.md §3 requires callers to treat this as a partial
// failure, not a success.
type Rwalk struct {
	Tag  uint16
	Qids []Qid
}

func (m Rwalk) Encode(buf []byte) ([]byte, error) {
	if len(m.Qids) > MaxWElem {
		return nil, fmt.Errorf("Rwalk: %d qids: %w", len(m.Qids), ErrEncodeOverflow)
	}
	start := len(buf)
	buf = putHeader(buf, 0, msgRwalk, m.Tag)
	w := &errWriter{w: appendWriter{&buf}}
	if err := PutVec16(w, len(m.Qids), func(i int) { w.PutQid(m.Qids[i]) }); err != nil {
		return nil, err
	}
	if w.err != nil {
		return nil, w.err
	}
	return finishFrame(buf, start), nil
}

func DecodeRwalk(b []byte) (Rwalk, []byte, error) {
	hdr, err := DecodeHeader(b)
	if err != nil {
		return Rwalk{}, nil, err
	}
	if err := checkOpcode(msgRwalk, hdr.Type); err != nil {
		return Rwalk{}, nil, err
	}
	body, rest, err := frameBody(b, hdr)
	if err != nil {
		return Rwalk{}, nil, err
	}
	var qids []Qid
	_, body, err = GetVec16(body, func(i int, b []byte) ([]byte, error) {
		q, rest, err := DecodeQid(b)
		if err != nil {
			return nil, fmt.Errorf("Rwalk.Wqid[%d]: %w", i, err)
		}
		qids = append(qids, q)
		return rest, nil
	})
	if err != nil {
		return Rwalk{}, nil, err
	}
	if len(body) != 0 {
		return Rwalk{}, nil, fmt.Errorf("Rwalk: %w", ErrTrailingBytes)
	}
	return Rwalk{Tag: hdr.Tag, Qids: qids}, rest, nil
}
