//go:build unix

package anysocket

import (
	"errors"
	"net"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// takeError reads and clears SO_ERROR on the socket behind rc.
func takeError(rc syscall.RawConn) (error, error) {
	var (
		soerr int
		gerr  error
	)
	if err := rc.Control(func(fd uintptr) {
		soerr, gerr = unix.GetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_ERROR)
	}); err != nil {
		return nil, err
	}
	if gerr != nil {
		return nil, os.NewSyscallError("getsockopt", gerr)
	}
	if soerr != 0 {
		return syscall.Errno(soerr), nil
	}
	return nil, nil
}

// shutdownBoth shuts down both directions with one syscall.
func shutdownBoth(s *Stream) error {
	rc, err := s.SyscallConn()
	if err != nil {
		return err
	}
	var serr error
	if err := rc.Control(func(fd uintptr) {
		serr = unix.Shutdown(int(fd), unix.SHUT_RDWR)
	}); err != nil {
		// A closed conn fails in Control; report the cause as CloseRead would.
		var oe *net.OpError
		if errors.As(err, &oe) {
			err = oe.Err
		}
		return s.shutdownError(err)
	}
	if serr != nil {
		return s.shutdownError(os.NewSyscallError("shutdown", serr))
	}
	return nil
}
