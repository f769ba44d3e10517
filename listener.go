package ember

import (
	"net"
	"time"
)

// keepAliveListener wraps a *net.TCPListener to enable TCP keep-alive on
// every accepted connection.
type keepAliveListener struct {
	*net.TCPListener
}

// newKeepAliveListener listens on the TCP network address.
func newKeepAliveListener(address string) (*keepAliveListener, error) {
	nl, err := net.Listen("tcp", address)
	if err != nil {
		return nil, err
	}
	return &keepAliveListener{TCPListener: nl.(*net.TCPListener)}, nil
}

// Accept implements net.Listener, enabling keep-alive on each connection
// before returning it.
func (l *keepAliveListener) Accept() (net.Conn, error) {
	tc, err := l.AcceptTCP()
	if err != nil {
		return nil, err
	}

	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)

	return tc, nil
}
