package control

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/stuffbucket/anysocket/internal/config"
)

// Config keys served by config.get.
const (
	ConfigKeyStateDir       = "state-dir"
	ConfigKeyControl        = "control"
	ConfigKeyLogPath        = "log-path"
	ConfigKeyLogLevel       = "log-level"
	ConfigKeyMaxConns       = "max-conns"
	ConfigKeyDialTimeout    = "dial-timeout"
	ConfigKeyDialRetries    = "dial-retries"
	ConfigKeyDialRetryDelay = "dial-retry-delay"
	ConfigKeyRoutes         = "routes"
	ConfigKeyPID            = "pid"
)

// configEntry defines a config key with its getter and whether it is
// optional (an empty string means "not configured" rather than a value).
type configEntry struct {
	getter   func() string
	optional bool
}

// ConfigRouter provides synchronized access to config values via the control protocol.
// The cfg pointer is captured by reference; handlers see values set after creation.
// Callers must hold Lock when mutating cfg fields that the handler reads.
type ConfigRouter struct {
	mu      sync.RWMutex
	entries map[string]configEntry
	router  *Router
}

// NewConfigRouter creates a ConfigRouter for config.get / config.keys commands.
func NewConfigRouter(cfg *config.Config) *ConfigRouter {
	cr := &ConfigRouter{
		entries: map[string]configEntry{
			ConfigKeyStateDir:       {getter: func() string { return cfg.StateDir }},
			ConfigKeyControl:        {getter: func() string { return cfg.Control.String() }},
			ConfigKeyLogPath:        {getter: func() string { return cfg.LogPath }, optional: true},
			ConfigKeyLogLevel:       {getter: func() string { return cfg.LogLevel }},
			ConfigKeyMaxConns:       {getter: func() string { return strconv.Itoa(cfg.MaxConns) }},
			ConfigKeyDialTimeout:    {getter: func() string { return cfg.DialTimeout.String() }},
			ConfigKeyDialRetries:    {getter: func() string { return strconv.Itoa(cfg.DialRetries) }},
			ConfigKeyDialRetryDelay: {getter: func() string { return cfg.DialRetryDelay.String() }},
			ConfigKeyRoutes:         {getter: func() string { return routeList(cfg.Routes) }, optional: true},
			ConfigKeyPID:            {getter: func() string { return strconv.Itoa(os.Getpid()) }},
		},
		router: NewRouter(),
	}

	cr.router.HandleFunc("get", cr.handleGet)
	cr.router.HandleFunc("keys", cr.handleKeys)

	return cr
}

// routeList renders routes as "name=listen->target" separated by spaces.
func routeList(routes []config.Route) string {
	parts := make([]string, 0, len(routes))
	for _, r := range routes {
		parts = append(parts, fmt.Sprintf("%s=%s->%s", r.Name, r.Listen, r.Target))
	}
	return strings.Join(parts, " ")
}

// Router returns the underlying Router for mounting.
func (cr *ConfigRouter) Router() *Router { return cr.router }

// Lock acquires the write lock. Hold this when mutating config fields.
func (cr *ConfigRouter) Lock() { cr.mu.Lock() }

// Unlock releases the write lock.
func (cr *ConfigRouter) Unlock() { cr.mu.Unlock() }

func (cr *ConfigRouter) handleGet(_ context.Context, req *Request) *Message {
	key := req.Arg(0)
	if key == "" {
		return &Message{Error: "usage: config.get <key>"}
	}

	entry, ok := cr.entries[key]
	if !ok {
		return &Message{Error: fmt.Sprintf("unknown config key: %s", key)}
	}

	cr.mu.RLock()
	val := entry.getter()
	cr.mu.RUnlock()

	if val == "" && entry.optional {
		return &Message{Error: fmt.Sprintf("%s not configured", key)}
	}
	return &Message{Response: val}
}

func (cr *ConfigRouter) handleKeys(_ context.Context, _ *Request) *Message {
	return &Message{Response: strings.Join(cr.keys(), " ")}
}

func (cr *ConfigRouter) keys() []string {
	keys := make([]string, 0, len(cr.entries))
	for k := range cr.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ConfigKeys lists the keys config.get accepts, sorted.
func ConfigKeys() []string {
	return NewConfigRouter(&config.Config{}).keys()
}
