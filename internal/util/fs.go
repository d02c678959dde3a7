// Package util provides shared filesystem helpers for socket files and
// state directories.
package util

import (
	"context"
	"fmt"
	"os"
	"time"
)

// FileExists returns true if path exists and is not a directory. Socket
// files count.
func FileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}

// DirExists returns true if path exists and is a directory.
func DirExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// SocketExists returns true if path exists and is a Unix socket.
func SocketExists(path string) bool {
	st, err := os.Lstat(path)
	return err == nil && st.Mode()&os.ModeSocket != 0
}

// EnsureDir creates dir with perm if it does not exist yet. An existing
// non-directory at dir is an error.
func EnsureDir(dir string, perm os.FileMode) error {
	if DirExists(dir) {
		return nil
	}
	if FileExists(dir) {
		return fmt.Errorf("%s exists and is not a directory", dir)
	}
	return os.MkdirAll(dir, perm)
}

// WaitGone polls until path no longer exists or ctx is done.
func WaitGone(ctx context.Context, path string, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := os.Lstat(path); os.IsNotExist(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
