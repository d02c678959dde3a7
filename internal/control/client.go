package control

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/relay"
)

// ErrNotRunning is returned when nothing answers at the control address.
var ErrNotRunning = errors.New("anysock is not running")

// Dialer abstracts connection creation for testing.
type Dialer interface {
	Dial(ctx context.Context, addr anysocket.Addr) (net.Conn, error)
}

// StreamDialer dials with an anysocket.Connector.
type StreamDialer struct {
	Connector anysocket.Connector
}

// Dial implements Dialer.
func (d *StreamDialer) Dial(ctx context.Context, addr anysocket.Addr) (net.Conn, error) {
	s, err := d.Connector.Connect(ctx, addr)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ClientConfig holds client configuration options.
type ClientConfig struct {
	Addr       anysocket.Addr
	Dialer     Dialer
	WireFormat WireFormat
}

// Client sends commands to a running control listener.
type Client struct {
	addr       anysocket.Addr
	dialer     Dialer
	wireFormat WireFormat
}

// NewClient creates a client with the default dialer and wire format.
func NewClient(addr anysocket.Addr) *Client {
	return NewClientWithConfig(ClientConfig{Addr: addr})
}

// NewClientWithConfig creates a client with custom configuration.
func NewClientWithConfig(cfg ClientConfig) *Client {
	if cfg.Dialer == nil {
		cfg.Dialer = &StreamDialer{Connector: anysocket.Connector{Dialer: net.Dialer{Timeout: dialTimeout}}}
	}
	if cfg.WireFormat == nil {
		cfg.WireFormat = DefaultWireFormat
	}
	return &Client{
		addr:       cfg.Addr,
		dialer:     cfg.Dialer,
		wireFormat: cfg.WireFormat,
	}
}

// Addr returns the control address the client talks to.
func (c *Client) Addr() anysocket.Addr { return c.addr }

// sendCommand sends a command and returns the response.
func (c *Client) sendCommand(cmd string, timeout time.Duration) (*Message, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	conn, err := c.dialer.Dial(ctx, c.addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return nil, fmt.Errorf("set deadline: %w", err)
	}

	if err := c.wireFormat.Encode(conn, &Message{Command: cmd}); err != nil {
		return nil, fmt.Errorf("send command: %w", err)
	}

	resp, err := c.wireFormat.Decode(conn)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	return resp, nil
}

// Send sends an arbitrary command and returns the response.
func (c *Client) Send(cmd string) (*Message, error) {
	return c.sendCommand(cmd, clientCmdTimeout)
}

// call sends cmd and turns transport failures and server errors into Go
// errors.
func (c *Client) call(cmd string, timeout time.Duration) (string, error) {
	resp, err := c.sendCommand(cmd, timeout)
	if err != nil {
		if isSocketNotAvailable(err) {
			return "", ErrNotRunning
		}
		return "", fmt.Errorf("%s: %w", strings.Fields(cmd)[0], err)
	}
	if resp.Error != "" {
		return "", fmt.Errorf("server error: %s", resp.Error)
	}
	return resp.Response, nil
}

// IsRunning checks if an anysock daemon answers at the control address.
func (c *Client) IsRunning() bool {
	resp, err := c.sendCommand(CmdPing, clientPingTimeout)
	if err != nil {
		return false
	}
	return resp.Response == RespPong
}

// Stop asks the running daemon to shut down.
func (c *Client) Stop() error {
	resp, err := c.call(CmdStop, clientCmdTimeout)
	if err != nil {
		return err
	}
	if resp != RespOK {
		return fmt.Errorf("unexpected response: %s", resp)
	}
	return nil
}

// Status gets the status of the running daemon, or StatusStopped when
// nothing answers.
func (c *Client) Status() (string, error) {
	resp, err := c.call(CmdStatus, clientPingTimeout)
	if errors.Is(err, ErrNotRunning) {
		return StatusStopped, nil
	}
	return resp, err
}

// Routes fetches the running routes with their counters.
func (c *Client) Routes() ([]relay.RouteStatus, error) {
	resp, err := c.call(CmdRoutes, clientCmdTimeout)
	if err != nil {
		return nil, err
	}
	var routes []relay.RouteStatus
	if err := json.Unmarshal([]byte(resp), &routes); err != nil {
		return nil, fmt.Errorf("decode routes: %w", err)
	}
	return routes, nil
}

// GetConfig reads one configuration value from the running daemon.
func (c *Client) GetConfig(key string) (string, error) {
	return c.call("config.get "+key, clientCmdTimeout)
}

// ConfigKeys lists the keys GetConfig accepts.
func (c *Client) ConfigKeys() ([]string, error) {
	resp, err := c.call("config.keys", clientCmdTimeout)
	if err != nil {
		return nil, err
	}
	return strings.Fields(resp), nil
}
