package control

import (
	"context"
	"sync"

	"github.com/stuffbucket/anysocket/internal/relay"
)

// LocalController implements Controller for the daemon in this process.
// It wraps a stop function and a route reporter.
type LocalController struct {
	stopFunc func()
	routes   func() []relay.RouteStatus
	mu       sync.Mutex
	stopped  bool
}

// NewLocalController creates a controller. routes may be nil.
func NewLocalController(stopFunc func(), routes func() []relay.RouteStatus) *LocalController {
	return &LocalController{
		stopFunc: stopFunc,
		routes:   routes,
	}
}

// Ping implements Controller.
func (c *LocalController) Ping(_ context.Context) error {
	return nil
}

// Status implements Controller.
func (c *LocalController) Status(_ context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return StatusStopped, nil
	}
	return StatusRunning, nil
}

// Stop implements Controller. Only the first call runs the stop function.
func (c *LocalController) Stop(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	c.stopped = true
	if c.stopFunc != nil {
		c.stopFunc()
	}
	return nil
}

// Routes implements Controller.
func (c *LocalController) Routes(_ context.Context) ([]relay.RouteStatus, error) {
	if c.routes == nil {
		return nil, nil
	}
	return c.routes(), nil
}

// IsStopped returns true if Stop has been called.
func (c *LocalController) IsStopped() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped
}
