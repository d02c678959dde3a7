package anysocket

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// Kind identifies the transport an Addr, Stream or Listener is bound to.
type Kind uint8

const (
	// KindTCP is a host and port endpoint reached over TCP.
	KindTCP Kind = iota + 1
	// KindUnix is a filesystem path (or abstract name) reached over a
	// Unix domain stream socket.
	KindUnix
)

// String returns the Go network name for the kind ("tcp" or "unix").
func (k Kind) String() string {
	switch k {
	case KindTCP:
		return "tcp"
	case KindUnix:
		return "unix"
	default:
		return "invalid"
	}
}

// Address schemes understood by ParseAddr.
const (
	SchemeTCP  = "tcp://"
	SchemeUnix = "unix://"
)

// ErrUnknownScheme is returned by ParseAddr for strings that start with
// neither SchemeTCP nor SchemeUnix.
var ErrUnknownScheme = errors.New("unknown address scheme")

// Addr is a network endpoint (host and port) or a local socket path.
//
// Addr is a plain comparable value. Its kind is fixed at construction and
// decides which transport Connect and Bind use. A TCP address never equals a
// Unix address. Nothing is validated at construction: a malformed host or an
// unusable path fails when it is dialed or bound.
//
// The zero Addr is invalid.
type Addr struct {
	kind Kind
	host string
	port uint16
	path string
}

// TCPAddr returns a network address. host may be an IP literal or a name
// to be resolved at connect or bind time.
func TCPAddr(host string, port uint16) Addr {
	return Addr{kind: KindTCP, host: host, port: port}
}

// UnixAddr returns a local socket address. A leading '@' selects the Linux
// abstract namespace, following the net package.
func UnixAddr(path string) Addr {
	return Addr{kind: KindUnix, path: path}
}

func (a Addr) Kind() Kind      { return a.kind }
func (a Addr) IsTCP() bool     { return a.kind == KindTCP }
func (a Addr) IsUnix() bool    { return a.kind == KindUnix }
func (a Addr) IsValid() bool   { return a.kind == KindTCP || a.kind == KindUnix }
func (a Addr) Host() string    { return a.host }
func (a Addr) Port() uint16    { return a.port }
func (a Addr) Path() string    { return a.path }
func (a Addr) IsUnnamed() bool { return a.kind == KindUnix && a.path == "" }

// IsAbstract reports whether a names a socket in the Linux abstract
// namespace.
func (a Addr) IsAbstract() bool {
	return a.kind == KindUnix && strings.HasPrefix(a.path, "@")
}

// Network implements net.Addr.
func (a Addr) Network() string {
	if !a.IsValid() {
		return ""
	}
	return a.kind.String()
}

// String implements net.Addr. Network addresses format as tcp://host:port,
// local ones as unix://path. Anonymous Unix peers format as
// "(unnamed unix socket)".
func (a Addr) String() string {
	switch a.kind {
	case KindTCP:
		return SchemeTCP + a.hostPort()
	case KindUnix:
		if a.path == "" {
			return "(unnamed unix socket)"
		}
		return SchemeUnix + a.path
	default:
		return "<nil>"
	}
}

// hostPort is the address handed to the dialer for TCP.
func (a Addr) hostPort() string {
	return net.JoinHostPort(a.host, strconv.FormatUint(uint64(a.port), 10))
}

// MarshalText implements encoding.TextMarshaler. Unlike String, an unnamed
// Unix address marshals as "unix://" so that it round-trips.
func (a Addr) MarshalText() ([]byte, error) {
	switch a.kind {
	case KindTCP:
		return []byte(SchemeTCP + a.hostPort()), nil
	case KindUnix:
		return []byte(SchemeUnix + a.path), nil
	default:
		return nil, errors.New("marshal invalid address")
	}
}

// UnmarshalText implements encoding.TextUnmarshaler using ParseAddr.
func (a *Addr) UnmarshalText(text []byte) error {
	parsed, err := ParseAddr(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddr parses "tcp://host:port" or "unix://path". IPv6 hosts must be
// bracketed, as for net.SplitHostPort. "unix://@name" is an abstract socket.
func ParseAddr(s string) (Addr, error) {
	switch {
	case strings.HasPrefix(s, SchemeTCP):
		host, portStr, err := net.SplitHostPort(strings.TrimPrefix(s, SchemeTCP))
		if err != nil {
			return Addr{}, fmt.Errorf("parse address %q: %w", s, err)
		}
		port, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return Addr{}, fmt.Errorf("parse address %q: invalid port: %w", s, err)
		}
		return TCPAddr(host, uint16(port)), nil
	case strings.HasPrefix(s, SchemeUnix):
		return UnixAddr(strings.TrimPrefix(s, SchemeUnix)), nil
	default:
		return Addr{}, fmt.Errorf("parse address %q: %w", s, ErrUnknownScheme)
	}
}

// MustParseAddr is like ParseAddr but panics on error.
func MustParseAddr(s string) Addr {
	a, err := ParseAddr(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromNetAddr converts a *net.TCPAddr or *net.UnixAddr. It reports false
// for any other type, including nil.
func FromNetAddr(na net.Addr) (Addr, bool) {
	switch na := na.(type) {
	case *net.TCPAddr:
		if na == nil {
			return Addr{}, false
		}
		return tcpAddrFrom(na), true
	case *net.UnixAddr:
		if na == nil {
			return Addr{}, false
		}
		return UnixAddr(na.Name), true
	case Addr:
		return na, na.IsValid()
	default:
		return Addr{}, false
	}
}

func tcpAddrFrom(na *net.TCPAddr) Addr {
	host := ""
	if len(na.IP) > 0 {
		host = na.IP.String()
	}
	if na.Zone != "" {
		host += "%" + na.Zone
	}
	return TCPAddr(host, uint16(na.Port))
}

// addrOf converts an address reported by a transport of kind k. The result
// always carries kind k: a missing TCP address becomes an empty network
// address and a missing Unix address becomes an unnamed one.
func addrOf(k Kind, na net.Addr) Addr {
	switch k {
	case KindTCP:
		if ta, ok := na.(*net.TCPAddr); ok && ta != nil {
			return tcpAddrFrom(ta)
		}
		return TCPAddr("", 0)
	case KindUnix:
		if ua, ok := na.(*net.UnixAddr); ok && ua != nil {
			return UnixAddr(ua.Name)
		}
		return UnixAddr("")
	default:
		return Addr{}
	}
}
