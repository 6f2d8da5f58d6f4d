/*
File Name:  Listener.go

C8 Listener: binds a TCP port and spawns one Receiver worker per
accepted connection. Accept errors on individual sockets are ignored;
a bind failure is fatal and returned to the caller.
*/

package transfer

import (
	"errors"
	"net"
	"strconv"
)

// Listener accepts connections and hands each to a Receiver running in its own goroutine.
type Listener struct {
	Receiver *Receiver
}

// NewListener returns a Listener backed by the given Receiver.
func NewListener(receiver *Receiver) *Listener {
	return &Listener{Receiver: receiver}
}

// Listen binds 0.0.0.0:port (port 0 picks an ephemeral port, exposed via the returned
// net.Listener's Addr for callers such as tests and the status API).
func (l *Listener) Listen(port int) (net.Listener, error) {
	return net.Listen("tcp", net.JoinHostPort("", strconv.Itoa(port)))
}

// Serve blocks, accepting connections on ln and handing each to a fresh Receiver goroutine,
// until ln is closed; an Accept error on an individual socket is skipped. There is no
// cancellation at the application level beyond closing ln, matching the reference server.
func (l *Listener) Serve(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			continue
		}
		go l.Receiver.HandleConnection(conn)
	}
}
