// Package lock guards a store directory against being opened by two
// Stores at the same time.
package lock

import (
	"errors"
	"os"
)

// FileName is the lock file created inside a locked directory.
const FileName = "LOCK"

// ErrLocked is returned by Acquire when the directory is already held.
var ErrLocked = errors.New("directory already in use by another store")

// Lock is a held directory lock. The zero value and nil are both unlocked.
type Lock struct {
	f *os.File
}
