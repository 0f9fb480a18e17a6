//go:build unix

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Acquire takes an exclusive, non-blocking advisory lock on dir.
//
// On Unix systems this uses flock(2) on a file named FileName inside dir.
// The lock is tied to the open file description, so it disappears when the
// process exits, including on a crash. If another Store holds the lock,
// Acquire fails with ErrLocked.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if errors.Is(err, syscall.EWOULDBLOCK) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("flock %s: %w", path, err)
	}

	return &Lock{f: f}, nil
}

// Release drops the flock and closes the lock file. The file itself is left
// in place; removing it would race with a concurrent Acquire.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	errUnlock := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	errClose := f.Close()
	if errUnlock != nil {
		return errUnlock
	}
	return errClose
}
