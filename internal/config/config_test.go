package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stuffbucket/anysocket"
)

func TestDefaultConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg := Default(tmpDir)

	if cfg.StateDir != tmpDir {
		t.Errorf("StateDir = %v, want %v", cfg.StateDir, tmpDir)
	}
	wantControl := anysocket.UnixAddr(filepath.Join(tmpDir, "control.sock"))
	if cfg.Control != wantControl {
		t.Errorf("Control = %v, want %v", cfg.Control, wantControl)
	}
	if cfg.MaxConns != DefaultMaxConns {
		t.Errorf("MaxConns = %v, want %v", cfg.MaxConns, DefaultMaxConns)
	}
	if cfg.DialRetries != 30 {
		t.Errorf("DialRetries = %v, want 30", cfg.DialRetries)
	}
	if cfg.DialRetryDelay != 500*time.Millisecond {
		t.Errorf("DialRetryDelay = %v, want 500ms", cfg.DialRetryDelay)
	}
	if len(cfg.Routes) != 0 {
		t.Errorf("Routes = %v, want none", cfg.Routes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() on defaults error = %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	web := Route{
		Name:   "web",
		Listen: anysocket.TCPAddr("127.0.0.1", 8080),
		Target: anysocket.UnixAddr("/run/web.sock"),
	}

	tests := []struct {
		name    string
		setup   func(*Config)
		wantErr bool
	}{
		{
			name:    "valid config passes",
			setup:   func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid route passes",
			setup:   func(c *Config) { c.Routes = []Route{web} },
			wantErr: false,
		},
		{
			name:    "tcp control address passes",
			setup:   func(c *Config) { c.Control = anysocket.TCPAddr("127.0.0.1", 7070) },
			wantErr: false,
		},
		{
			name:    "missing state dir fails",
			setup:   func(c *Config) { c.StateDir = "" },
			wantErr: true,
		},
		{
			name:    "invalid control address fails",
			setup:   func(c *Config) { c.Control = anysocket.Addr{} },
			wantErr: true,
		},
		{
			name:    "unnamed control socket fails",
			setup:   func(c *Config) { c.Control = anysocket.UnixAddr("") },
			wantErr: true,
		},
		{
			name:    "bad log level fails",
			setup:   func(c *Config) { c.LogLevel = "verbose" },
			wantErr: true,
		},
		{
			name:    "negative max conns fails",
			setup:   func(c *Config) { c.MaxConns = -1 },
			wantErr: true,
		},
		{
			name:    "negative retries fails",
			setup:   func(c *Config) { c.DialRetries = -1 },
			wantErr: true,
		},
		{
			name:    "huge retry delay fails",
			setup:   func(c *Config) { c.DialRetryDelay = time.Hour },
			wantErr: true,
		},
		{
			name: "duplicate route names fail",
			setup: func(c *Config) {
				other := web
				other.Listen = anysocket.TCPAddr("127.0.0.1", 8081)
				c.Routes = []Route{web, other}
			},
			wantErr: true,
		},
		{
			name: "duplicate listen address fails",
			setup: func(c *Config) {
				other := web
				other.Name = "web2"
				c.Routes = []Route{web, other}
			},
			wantErr: true,
		},
		{
			name: "two ephemeral listeners pass",
			setup: func(c *Config) {
				a, b := web, web
				a.Listen = anysocket.TCPAddr("127.0.0.1", 0)
				b.Name, b.Listen = "b", anysocket.TCPAddr("127.0.0.1", 0)
				c.Routes = []Route{a, b}
			},
			wantErr: false,
		},
		{
			name: "route onto itself fails",
			setup: func(c *Config) {
				r := web
				r.Target = r.Listen
				c.Routes = []Route{r}
			},
			wantErr: true,
		},
		{
			name: "route on control address fails",
			setup: func(c *Config) {
				r := web
				r.Listen = c.Control
				c.Routes = []Route{r}
			},
			wantErr: true,
		},
		{
			name: "route without target fails",
			setup: func(c *Config) {
				r := web
				r.Target = anysocket.Addr{}
				c.Routes = []Route{r}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default(t.TempDir())
			tt.setup(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	t.Setenv("ANYSOCK_STATE_DIR", "/var/lib/anysock-default")

	const doc = `
state_dir: /srv/anysock
log_level: debug
max_conns: 16
dial_timeout: 2s
dial_retry_delay: 250ms
routes:
  - name: web
    listen: tcp://127.0.0.1:8080
    target: unix:///run/web.sock
  - listen: unix:///run/anysock/db.sock
    target: tcp://[::1]:5432
`
	cfg, err := Decode(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if cfg.StateDir != "/srv/anysock" {
		t.Errorf("StateDir = %v", cfg.StateDir)
	}
	if want := anysocket.UnixAddr("/srv/anysock/control.sock"); cfg.Control != want {
		t.Errorf("Control = %v, want %v (follows state_dir)", cfg.Control, want)
	}
	if cfg.MaxConns != 16 || cfg.DialTimeout != 2*time.Second || cfg.DialRetryDelay != 250*time.Millisecond {
		t.Errorf("tuning = %d %v %v", cfg.MaxConns, cfg.DialTimeout, cfg.DialRetryDelay)
	}
	if cfg.DialRetries != DefaultDialRetries {
		t.Errorf("DialRetries = %d, want default %d", cfg.DialRetries, DefaultDialRetries)
	}
	if len(cfg.Routes) != 2 {
		t.Fatalf("Routes = %v", cfg.Routes)
	}

	want := []Route{
		{Name: "web", Listen: anysocket.TCPAddr("127.0.0.1", 8080), Target: anysocket.UnixAddr("/run/web.sock")},
		{Name: "route-2", Listen: anysocket.UnixAddr("/run/anysock/db.sock"), Target: anysocket.TCPAddr("::1", 5432)},
	}
	for i := range want {
		if cfg.Routes[i] != want[i] {
			t.Errorf("Routes[%d] = %v, want %v", i, cfg.Routes[i], want[i])
		}
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestDecodeExplicitControl(t *testing.T) {
	cfg, err := Decode(strings.NewReader("state_dir: /srv/a\ncontrol: tcp://127.0.0.1:7070\n"))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if want := anysocket.TCPAddr("127.0.0.1", 7070); cfg.Control != want {
		t.Errorf("Control = %v, want %v", cfg.Control, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "listen_backlog: 5\n"},
		{"bad address scheme", "routes:\n  - listen: udp://127.0.0.1:53\n    target: unix:///x\n"},
		{"bad port", "control: tcp://127.0.0.1:99999\n"},
		{"bad duration", "dial_timeout: soon\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(strings.NewReader(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	t.Setenv("ANYSOCK_STATE_DIR", "/tmp/anysock-empty")
	cfg, err := Decode(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if cfg.StateDir != "/tmp/anysock-empty" {
		t.Errorf("StateDir = %v", cfg.StateDir)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "anysock.yaml")
	if err := os.WriteFile(path, []byte("routes:\n  - listen: tcp://127.0.0.1:0\n    target: unix:///run/x.sock\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Routes) != 1 || cfg.Routes[0].Name != "route-1" {
		t.Errorf("Routes = %v", cfg.Routes)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Load(missing) error = %v, want not-exist", err)
	}
}

func TestParseRoute(t *testing.T) {
	tests := []struct {
		in      string
		want    Route
		wantErr bool
	}{
		{
			in: "tcp://127.0.0.1:8080=unix:///run/web.sock",
			want: Route{
				Name:   "tcp://127.0.0.1:8080",
				Listen: anysocket.TCPAddr("127.0.0.1", 8080),
				Target: anysocket.UnixAddr("/run/web.sock"),
			},
		},
		{in: "tcp://127.0.0.1:8080", wantErr: true},
		{in: "http://x:1=unix:///a", wantErr: true},
		{in: "unix:///a=tcp://nohost", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRoute(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRoute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRoute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDefaultStateDir(t *testing.T) {
	t.Run("env override", func(t *testing.T) {
		t.Setenv("ANYSOCK_STATE_DIR", "/custom/state")
		if got := DefaultStateDir(); got != "/custom/state" {
			t.Errorf("DefaultStateDir() = %v", got)
		}
	})
	t.Run("xdg", func(t *testing.T) {
		t.Setenv("ANYSOCK_STATE_DIR", "")
		t.Setenv("XDG_STATE_HOME", "/xdg")
		if got := DefaultStateDir(); got != filepath.Join("/xdg", "anysock") {
			t.Errorf("DefaultStateDir() = %v", got)
		}
	})
	t.Run("home", func(t *testing.T) {
		t.Setenv("ANYSOCK_STATE_DIR", "")
		t.Setenv("XDG_STATE_HOME", "")
		home := t.TempDir()
		t.Setenv("HOME", home)
		if got := DefaultStateDir(); got != filepath.Join(home, ".local", "state", "anysock") {
			t.Errorf("DefaultStateDir() = %v", got)
		}
	})
}
