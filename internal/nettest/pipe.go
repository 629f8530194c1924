// Package nettest provides an in-memory net.Listener for exercising
// transport and client code without binding a real socket.
package nettest

import (
	"errors"
	"net"
	"sync"
)

var errClosed = errors.New("nettest: listener closed")

// PipeListener is a net.Listener backed by net.Pipe, so tests that
// need a Transport's Dialer and a server loop's Accept can run
// entirely in-process, with no permission to bind a port required.
type PipeListener struct {
	once     sync.Once
	incoming chan net.Conn
	shutdown chan struct{}
}

func (l *PipeListener) init() {
	l.once.Do(func() {
		l.incoming = make(chan net.Conn)
		l.shutdown = make(chan struct{})
	})
}

// Accept blocks until a Dial call arrives or the listener is closed.
func (l *PipeListener) Accept() (net.Conn, error) {
	l.init()
	select {
	case c := <-l.incoming:
		return c, nil
	case <-l.shutdown:
		return nil, errClosed
	}
}

// Dial returns the client half of a fresh net.Pipe, handing the
// server half to a concurrent Accept call.
func (l *PipeListener) Dial() (net.Conn, error) {
	l.init()
	client, server := net.Pipe()
	select {
	case <-l.shutdown:
		client.Close()
		server.Close()
		return nil, errClosed
	case l.incoming <- server:
		return client, nil
	}
}

// Close closes the listener. Its return value is always nil.
func (l *PipeListener) Close() error {
	l.init()
	select {
	case <-l.shutdown:
	default:
		close(l.shutdown)
	}
	return nil
}

type dummyAddr struct{}

func (dummyAddr) Network() string { return "pipe" }
func (dummyAddr) String() string  { return "pipe" }

func (l *PipeListener) Addr() net.Addr {
	l.init()
	return dummyAddr{}
}
