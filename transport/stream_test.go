package transport_test

import (
	"context"
	"encoding/binary"
	"io"
	"testing"
	"time"

	"9fans.dev/p9l/internal/nettest"
	"9fans.dev/p9l/p9wire"
	"9fans.dev/p9l/transport"
)

func TestStreamTransportRoundTrip(t *testing.T) {
	var listener nettest.PipeListener
	defer listener.Close()

	serverErr := make(chan error, 1)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			serverErr <- err
			return
		}
		defer conn.Close()

		sizeBuf := make([]byte, 4)
		if _, err := io.ReadFull(conn, sizeBuf); err != nil {
			serverErr <- err
			return
		}
		size := binary.LittleEndian.Uint32(sizeBuf)
		rest := make([]byte, size-4)
		if _, err := io.ReadFull(conn, rest); err != nil {
			serverErr <- err
			return
		}

		reply := p9wire.Rversion{Msize: 4096, Version: p9wire.Version9P2000L}
		buf, err := reply.Encode(nil)
		if err != nil {
			serverErr <- err
			return
		}
		if _, err := conn.Write(buf); err != nil {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		return listener.Dial()
	}
	tr := transport.NewStreamTransport(dial)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close()

	req := p9wire.Tversion{Msize: 4096, Version: p9wire.Version9P2000L}
	buf, err := req.Encode(nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := tr.WriteAll(ctx, buf); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	frame, err := tr.ReadFrame(ctx)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	reply, _, err := p9wire.DecodeRversion(frame)
	if err != nil {
		t.Fatalf("DecodeRversion: %v", err)
	}
	if reply.Msize != 4096 || reply.Version != p9wire.Version9P2000L {
		t.Errorf("got %+v", reply)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestStreamTransportConnectIdempotent(t *testing.T) {
	var listener nettest.PipeListener
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		return listener.Dial()
	}
	tr := transport.NewStreamTransport(dial)
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("second Connect: %v", err)
	}
}

func TestStreamTransportNotConnected(t *testing.T) {
	tr := transport.NewStreamTransport(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return nil, nil
	})
	ctx := context.Background()
	if err := tr.WriteAll(ctx, []byte{1, 2, 3}); err != transport.ErrNotConnected {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
	if _, err := tr.ReadFrame(ctx); err != transport.ErrNotConnected {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}

func TestStreamTransportMaxSize(t *testing.T) {
	var listener nettest.PipeListener
	defer listener.Close()
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		// Send a frame declaring a size far larger than MaxSize.
		oversized := make([]byte, 16)
		oversized[0] = 0xff
		oversized[1] = 0xff
		oversized[2] = 0xff
		oversized[3] = 0x7f
		conn.Write(oversized)
	}()

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		return listener.Dial()
	}
	tr := transport.NewStreamTransport(dial)
	tr.MaxSize = 1024
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatal(err)
	}
	defer tr.Close()
	if _, err := tr.ReadFrame(ctx); err == nil {
		t.Fatal("expected an error for an oversized frame")
	}
}

