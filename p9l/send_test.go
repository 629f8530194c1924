package p9l

import (
	"context"
	"errors"
	"testing"
	"time"

	"9fans.dev/p9l/p9wire"
)

// fakeTransport is a hand-rolled transport.Transport for tests that
// need to control exactly what bytes come back without a real
// mockserver round trip.
type fakeTransport struct {
	connectErr  error
	connectCnt  int
	writeErr    error
	readFrame   []byte
	readErr     error
	lastWritten []byte
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	f.connectCnt++
	return f.connectErr
}

func (f *fakeTransport) WriteAll(ctx context.Context, frame []byte) error {
	f.lastWritten = append([]byte(nil), frame...)
	return f.writeErr
}

func (f *fakeTransport) ReadFrame(ctx context.Context) ([]byte, error) {
	return f.readFrame, f.readErr
}

func (f *fakeTransport) Close() error { return nil }

func TestSendUnexpectedReturnType(t *testing.T) {
	reply, err := p9wire.Rclunk{}.Encode(nil) // deliberately not Rversion
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	c := &Client{Transport: &fakeTransport{readFrame: reply}}
	_, err = c.Version(context.Background())
	var urte *UnexpectedReturnTypeError
	if !errors.As(err, &urte) {
		t.Fatalf("Version: want *UnexpectedReturnTypeError, got %v (%T)", err, err)
	}
	if urte.Expected != p9wire.OpRversion || urte.Got != p9wire.OpRclunk {
		t.Fatalf("UnexpectedReturnTypeError fields: %+v", urte)
	}
}

func TestSendServerError(t *testing.T) {
	reply, err := p9wire.Rlerror{Ecode: 2}.Encode(nil)
	if err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	c := &Client{Transport: &fakeTransport{readFrame: reply}}
	_, err = c.Version(context.Background())
	var serr *ServerError
	if !errors.As(err, &serr) {
		t.Fatalf("Version: want *ServerError, got %v (%T)", err, err)
	}
	if serr.Ecode != 2 {
		t.Fatalf("ServerError.Ecode = %d, want 2", serr.Ecode)
	}
}

func TestSendTransportWriteError(t *testing.T) {
	boom := errors.New("boom")
	c := &Client{Transport: &fakeTransport{writeErr: boom}}
	_, err := c.Version(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Version: want *TransportError, got %v (%T)", err, err)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("TransportError does not wrap the underlying write error")
	}
}

func TestConnectRetryGivesUp(t *testing.T) {
	boom := errors.New("dial refused")
	ft := &fakeTransport{connectErr: boom}
	c := &Client{
		Transport: ft,
		Backoff:   func(try int) time.Duration { return time.Millisecond },
	}
	_, err := c.Version(context.Background())
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Version: want *TransportError, got %v (%T)", err, err)
	}
	if ft.connectCnt != maxConnectAttempts {
		t.Fatalf("connect attempts = %d, want %d", ft.connectCnt, maxConnectAttempts)
	}
}

func TestConnectRetryContextCanceled(t *testing.T) {
	boom := errors.New("dial refused")
	ft := &fakeTransport{connectErr: boom}
	c := &Client{
		Transport: ft,
		Backoff:   func(try int) time.Duration { return time.Hour },
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Version(ctx)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("Version: want *TransportError, got %v (%T)", err, err)
	}
	if ft.connectCnt != 1 {
		t.Fatalf("connect attempts = %d, want 1 (context already canceled)", ft.connectCnt)
	}
}
