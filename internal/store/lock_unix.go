//go:build linux || darwin

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// fileLock holds an exclusive advisory flock on the data directory's
// lock file for the life of the process, enforcing a single-writer
// discipline across process restarts.
type fileLock struct {
	fd int
}

func acquireFileLock(dataDir string) (*fileLock, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, err
	}
	path := filepath.Join(dataDir, ".lock")
	fd, err := unix.Open(path, unix.O_CREAT|unix.O_RDWR, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}
	if err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("data directory %s is locked by another process: %w", dataDir, err)
	}
	return &fileLock{fd: fd}, nil
}

func (l *fileLock) release() {
	if l == nil {
		return
	}
	unix.Flock(l.fd, unix.LOCK_UN)
	unix.Close(l.fd)
}
