//go:build windows

package lock

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Acquire takes an exclusive lock on dir.
//
// On Windows this is done by atomically creating FileName inside dir. If
// the file already exists the directory is assumed to be held by another
// Store. A crash leaves the file behind and it has to be removed by hand.
func Acquire(dir string) (*Lock, error) {
	path := filepath.Join(dir, FileName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w: %s", ErrLocked, dir)
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	return &Lock{f: f}, nil
}

// Release closes and removes the lock file. It should be called exactly
// once for each successful Acquire; later calls are no-ops.
func (l *Lock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	f := l.f
	l.f = nil

	name := f.Name()
	if err := f.Close(); err != nil {
		return err
	}
	return os.Remove(name)
}
