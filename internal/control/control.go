// Package control provides the relay daemon's control plane over any
// anysocket address.
//
// Architecture:
//
//	Controller (domain) ─────────┐
//	                             v
//	Client ─── WireFormat ─── anysocket.Addr ─── Listener ─── Router ─── Handler ─── Controller
//
// Components:
//   - Controller: Domain interface for the daemon (Ping, Status, Stop, Routes)
//   - WireFormat: Serialization format (line-based, JSON)
//   - Listener:   Binds a Unix or TCP control address and serves one command per stream
//   - Router:     Dispatches commands to handlers, with namespaces such as "config."
//   - Client:     Sends commands to a listener
//
// The control address decides the transport. A Unix address is the default;
// a TCP address works the same way with no transport-specific code.
package control

import (
	"context"

	"github.com/stuffbucket/anysocket/internal/relay"
)

// Controller defines the operations a running daemon exposes.
type Controller interface {
	// Ping checks if the controller is responsive.
	Ping(ctx context.Context) error
	// Status returns the daemon status.
	Status(ctx context.Context) (string, error)
	// Stop asks the daemon to shut down.
	Stop(ctx context.Context) error
	// Routes reports the running relay routes and their counters.
	Routes(ctx context.Context) ([]relay.RouteStatus, error)
}

// ControllerFunc allows functions to implement single Controller methods.
// Useful for testing or composition.
type ControllerFunc struct {
	PingFn   func(ctx context.Context) error
	StatusFn func(ctx context.Context) (string, error)
	StopFn   func(ctx context.Context) error
	RoutesFn func(ctx context.Context) ([]relay.RouteStatus, error)
}

// Ping implements Controller.
func (f ControllerFunc) Ping(ctx context.Context) error {
	if f.PingFn != nil {
		return f.PingFn(ctx)
	}
	return nil
}

// Status implements Controller.
func (f ControllerFunc) Status(ctx context.Context) (string, error) {
	if f.StatusFn != nil {
		return f.StatusFn(ctx)
	}
	return StatusRunning, nil
}

// Stop implements Controller.
func (f ControllerFunc) Stop(ctx context.Context) error {
	if f.StopFn != nil {
		return f.StopFn(ctx)
	}
	return nil
}

// Routes implements Controller.
func (f ControllerFunc) Routes(ctx context.Context) ([]relay.RouteStatus, error) {
	if f.RoutesFn != nil {
		return f.RoutesFn(ctx)
	}
	return nil, nil
}

// Status constants
const (
	StatusRunning = "running"
	StatusStopped = "stopped"
)

// Command constants
const (
	CmdPing   = "ping"
	CmdStop   = "stop"
	CmdStatus = "status"
	CmdRoutes = "routes"
)

// Response constants
const (
	RespOK   = "ok"
	RespPong = "pong"
)
