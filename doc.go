// Package anysocket provides stream sockets whose transport, TCP or Unix
// domain, is chosen at runtime by the address they are created from.
//
// Architecture:
//
//	Addr ──┬── Connect ────────────────> Stream (tcp | unix)
//	       └── Bind ──> Listener ── AcceptStream ──> Stream, peer Addr
//
// Components:
//   - Addr:      tcp://host:port or unix://path, a comparable value
//   - Connector: dials an Addr with a net.Dialer
//   - Binder:    binds an Addr with a net.ListenConfig
//   - Stream:    wraps *net.TCPConn or *net.UnixConn, implements net.Conn
//   - Listener:  wraps *net.TCPListener or *net.UnixListener, implements net.Listener
//
// Every operation forwards to the wrapped net type and returns its results
// and errors unchanged, so errors.Is(err, syscall.ECONNREFUSED) and friends
// behave exactly as they do against the net package. Nothing here locks,
// retries, logs or starts goroutines; concurrency rules are those of net.
package anysocket
