package transport_test

import (
	"context"
	"io"
	"net"
	"testing"

	"9fans.dev/p9l/p9wire"
	"9fans.dev/p9l/transport"
)

// net.Pipe is synchronous: one Write is delivered to exactly one
// matching Read, which is the same guarantee a character device gives
// RecordTransport, so it stands in for one here.
func TestRecordTransportRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer server.Close()

	serverErr := make(chan error, 1)
	go func() {
		buf := make([]byte, 4096)
		n, err := server.Read(buf)
		if err != nil {
			serverErr <- err
			return
		}
		_, _, err = p9wire.DecodeTversion(buf[:n])
		if err != nil {
			serverErr <- err
			return
		}
		reply := p9wire.Rversion{Msize: 4096, Version: p9wire.Version9P2000L}
		out, err := reply.Encode(nil)
		if err != nil {
			serverErr <- err
			return
		}
		if _, err := server.Write(out); err != nil {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	dial := func(ctx context.Context) (io.ReadWriteCloser, error) {
		return client, nil
	}
	tr := transport.NewRecordTransport(dial, 4096)
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatal(err)
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
		t.Fatal(err)
	}
	if reply.Msize != 4096 {
		t.Errorf("got %+v", reply)
	}

	if err := <-serverErr; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestRecordTransportNotConnected(t *testing.T) {
	tr := transport.NewRecordTransport(func(ctx context.Context) (io.ReadWriteCloser, error) {
		return nil, nil
	}, 4096)
	ctx := context.Background()
	if err := tr.WriteAll(ctx, []byte{1}); err != transport.ErrNotConnected {
		t.Fatalf("got %v, want ErrNotConnected", err)
	}
}
