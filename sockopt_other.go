//go:build !unix

package anysocket

import (
	"errors"
	"syscall"
)

func takeError(syscall.RawConn) (error, error) {
	return nil, errors.ErrUnsupported
}

func shutdownBoth(s *Stream) error {
	if err := s.CloseRead(); err != nil {
		return err
	}
	return s.CloseWrite()
}
