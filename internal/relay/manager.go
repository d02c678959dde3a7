package relay

import (
	"context"
	"errors"
	"sync"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/config"
)

// RouteStatus describes one running route for the control plane.
type RouteStatus struct {
	Name   string         `json:"name"`
	Listen anysocket.Addr `json:"listen"`
	Target anysocket.Addr `json:"target"`
	Stats  Stats          `json:"stats"`
}

// Manager runs one Forwarder per configured route.
type Manager struct {
	mu         sync.Mutex
	forwarders []*Forwarder
	opts       Options
}

func NewManager(opts Options) *Manager {
	return &Manager{opts: opts}
}

// Start binds every route. If one fails, the routes already started are
// closed and the error is returned.
func (m *Manager) Start(ctx context.Context, routes []config.Route) error {
	started := make([]*Forwarder, 0, len(routes))
	for _, r := range routes {
		f := New(r, m.opts)
		if err := f.Start(ctx); err != nil {
			for _, s := range started {
				_ = s.Close()
			}
			return err
		}
		started = append(started, f)
	}

	m.mu.Lock()
	m.forwarders = append(m.forwarders, started...)
	m.mu.Unlock()
	return nil
}

// Routes reports every running route in start order.
func (m *Manager) Routes() []RouteStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]RouteStatus, 0, len(m.forwarders))
	for _, f := range m.forwarders {
		out = append(out, RouteStatus{
			Name:   f.Name(),
			Listen: f.Addr(),
			Target: f.Target(),
			Stats:  f.Stats(),
		})
	}
	return out
}

// Close stops every route.
func (m *Manager) Close() error {
	m.mu.Lock()
	forwarders := m.forwarders
	m.forwarders = nil
	m.mu.Unlock()

	var errs []error
	for _, f := range forwarders {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
