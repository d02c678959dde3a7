package anysocket

import (
	"context"
	"errors"
	"net"
)

// ErrNoAddresses is returned by ConnectFirst and BindFirst when called
// without addresses.
var ErrNoAddresses = errors.New("no addresses")

// Connector establishes Streams. The zero value dials like net.Dial.
type Connector struct {
	// Dialer is used for both transports. Timeout, Deadline and LocalAddr
	// behave as documented on net.Dialer; KeepAlive only affects TCP.
	Dialer net.Dialer
}

// Connect dials addr with a zero Connector.
func Connect(ctx context.Context, addr Addr) (*Stream, error) {
	var c Connector
	return c.Connect(ctx, addr)
}

// Connect dials addr over the transport its kind selects. Errors come from
// net.Dialer.DialContext as is.
func (c *Connector) Connect(ctx context.Context, addr Addr) (*Stream, error) {
	switch addr.kind {
	case KindTCP:
		conn, err := c.Dialer.DialContext(ctx, "tcp", addr.hostPort())
		if err != nil {
			return nil, err
		}
		return NewTCPStream(conn.(*net.TCPConn)), nil
	case KindUnix:
		conn, err := c.Dialer.DialContext(ctx, "unix", addr.path)
		if err != nil {
			return nil, err
		}
		return NewUnixStream(conn.(*net.UnixConn)), nil
	default:
		return nil, invalidAddrError("dial")
	}
}

// ConnectFirst dials each address in order and returns the first Stream
// established. If all fail it returns the error of the last attempt.
func (c *Connector) ConnectFirst(ctx context.Context, addrs ...Addr) (*Stream, error) {
	if len(addrs) == 0 {
		return nil, ErrNoAddresses
	}
	var lastErr error
	for _, addr := range addrs {
		s, err := c.Connect(ctx, addr)
		if err == nil {
			return s, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

// invalidAddrError is what net returns for an empty network name.
func invalidAddrError(op string) error {
	return &net.OpError{Op: op, Err: net.UnknownNetworkError("")}
}
