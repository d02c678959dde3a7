package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/stuffbucket/anysocket"
	"github.com/stuffbucket/anysocket/internal/logging"
)

const (
	// Relay session defaults
	DefaultMaxConns       = 256
	DefaultDialTimeout    = 5 * time.Second
	DefaultDialRetries    = 30
	DefaultDialRetryDelay = 500 * time.Millisecond

	// Validation constraints
	MaxConnsLimit     = 1 << 16
	MaxDialRetryDelay = time.Minute

	DefaultLogLevel    = "info"
	DefaultStopTimeout = 30 // seconds
	ControlSocketName  = "control.sock"
	DefaultConfigName  = "anysock.yaml"
)

// Route forwards every connection accepted on Listen to Target. Either side
// may be a network or a local socket address.
type Route struct {
	Name   string         `yaml:"name"`
	Listen anysocket.Addr `yaml:"listen"`
	Target anysocket.Addr `yaml:"target"`
}

func (r Route) String() string {
	return fmt.Sprintf("%s: %s -> %s", r.Name, r.Listen, r.Target)
}

type Config struct {
	StateDir string `yaml:"state_dir"`
	// LogPath is an optional rotating log file next to stderr output.
	LogPath  string         `yaml:"log_path"`
	LogLevel string         `yaml:"log_level"`
	Control  anysocket.Addr `yaml:"control"`

	MaxConns       int           `yaml:"max_conns"`
	DialTimeout    time.Duration `yaml:"dial_timeout"`
	DialRetries    int           `yaml:"dial_retries"`
	DialRetryDelay time.Duration `yaml:"dial_retry_delay"`

	Routes []Route `yaml:"routes"`
}

// Default returns a configuration rooted at baseDir, or at DefaultStateDir
// when baseDir is empty. The control plane listens on a Unix socket inside
// the state directory.
func Default(baseDir string) *Config {
	if baseDir == "" {
		baseDir = DefaultStateDir()
	}
	return &Config{
		StateDir:       baseDir,
		LogLevel:       DefaultLogLevel,
		Control:        DefaultControlAddr(baseDir),
		MaxConns:       DefaultMaxConns,
		DialTimeout:    DefaultDialTimeout,
		DialRetries:    DefaultDialRetries,
		DialRetryDelay: DefaultDialRetryDelay,
	}
}

// Load reads a YAML configuration file on top of Default. Unknown keys are
// rejected. When the file moves state_dir without naming a control address,
// the control socket follows the state directory.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logging.L().Debug("loaded config", "path", path, "routes", len(cfg.Routes))
	return cfg, nil
}

// Decode is Load for an already open reader.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default("")
	defaultControl := cfg.Control

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.Control == defaultControl {
		cfg.Control = DefaultControlAddr(cfg.StateDir)
	}
	for i := range cfg.Routes {
		if cfg.Routes[i].Name == "" {
			cfg.Routes[i].Name = fmt.Sprintf("route-%d", i+1)
		}
	}
	return cfg, nil
}

// ParseRoute parses the LISTEN=TARGET form used by `anysock serve --route`.
// The route is named after its listen address.
func ParseRoute(s string) (Route, error) {
	listenStr, targetStr, ok := strings.Cut(s, "=")
	if !ok {
		return Route{}, fmt.Errorf("route %q: expected LISTEN=TARGET", s)
	}
	listen, err := anysocket.ParseAddr(listenStr)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: listen: %w", s, err)
	}
	target, err := anysocket.ParseAddr(targetStr)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: target: %w", s, err)
	}
	return Route{Name: listen.String(), Listen: listen, Target: target}, nil
}

func (c *Config) Validate() error {
	if c.StateDir == "" {
		return errors.New("state directory is required")
	}
	if !c.Control.IsValid() {
		return errors.New("control address is required")
	}
	if c.Control.IsUnnamed() {
		return errors.New("control address must name a socket path")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MaxConns < 0 || c.MaxConns > MaxConnsLimit {
		return fmt.Errorf("max_conns must be in range 0-%d", MaxConnsLimit)
	}
	if c.DialTimeout < 0 {
		return errors.New("dial_timeout must not be negative")
	}
	if c.DialRetries < 0 {
		return errors.New("dial_retries must not be negative")
	}
	if c.DialRetryDelay < 0 || c.DialRetryDelay > MaxDialRetryDelay {
		return fmt.Errorf("dial_retry_delay must be in range 0-%s", MaxDialRetryDelay)
	}

	names := make(map[string]bool, len(c.Routes))
	listens := make(map[anysocket.Addr]string, len(c.Routes))
	for _, r := range c.Routes {
		if r.Name == "" {
			return errors.New("route name is required")
		}
		if names[r.Name] {
			return fmt.Errorf("duplicate route name: %s", r.Name)
		}
		names[r.Name] = true

		if !r.Listen.IsValid() {
			return fmt.Errorf("route %s: listen address is required", r.Name)
		}
		if !r.Target.IsValid() {
			return fmt.Errorf("route %s: target address is required", r.Name)
		}
		if r.Listen.IsUnnamed() || r.Target.IsUnnamed() {
			return fmt.Errorf("route %s: unix addresses must name a socket path", r.Name)
		}
		if r.Listen == r.Target {
			return fmt.Errorf("route %s: listen and target must differ", r.Name)
		}
		if r.Listen == c.Control {
			return fmt.Errorf("route %s: listen address is the control address", r.Name)
		}
		// Port 0 binds a fresh ephemeral port each time, so only fixed
		// endpoints can collide.
		if r.Listen.IsTCP() && r.Listen.Port() == 0 {
			continue
		}
		if other, dup := listens[r.Listen]; dup {
			return fmt.Errorf("routes %s and %s listen on the same address %s", other, r.Name, r.Listen)
		}
		listens[r.Listen] = r.Name
	}
	return nil
}

// DefaultStateDir returns the XDG-compliant state directory for anysock.
// Precedence: ANYSOCK_STATE_DIR > XDG_STATE_HOME/anysock > ~/.local/state/anysock
func DefaultStateDir() string {
	if d := os.Getenv("ANYSOCK_STATE_DIR"); d != "" {
		return d
	}
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "anysock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".local", "state", "anysock")
	}
	return filepath.Join(home, ".local", "state", "anysock")
}

// DefaultControlAddr is the control socket inside stateDir.
func DefaultControlAddr(stateDir string) anysocket.Addr {
	return anysocket.UnixAddr(filepath.Join(stateDir, ControlSocketName))
}

// DefaultConfigPath is where `anysock serve` looks for a config file when
// --config is not given.
func DefaultConfigPath(stateDir string) string {
	return filepath.Join(stateDir, DefaultConfigName)
}
