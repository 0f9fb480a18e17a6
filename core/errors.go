package core

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a store error so callers can branch on it with errors.Is
// or KindOf instead of inspecting messages.
type Kind uint8

const (
	KindUnknown Kind = iota
	// The path is not usable as a store directory: missing, not a
	// directory, inaccessible or locked by another Store.
	KindInvalidStore
	// An underlying read, write, fsync or close failed.
	KindIO
	// Remove was called for a key that is not in the store.
	KindKeyNotFound
	// A record in the middle of the log failed to decode.
	KindCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindInvalidStore:
		return "invalid store"
	case KindIO:
		return "i/o error"
	case KindKeyNotFound:
		return "key not found"
	case KindCorrupt:
		return "corrupt log"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is. They match any *Error of the same Kind.
var (
	ErrInvalidStore = &Error{Kind: KindInvalidStore}
	ErrIO           = &Error{Kind: KindIO}
	ErrKeyNotFound  = &Error{Kind: KindKeyNotFound}
	ErrCorrupt      = &Error{Kind: KindCorrupt}
)

// ErrClosed is wrapped into a KindIO error when a closed Store is used.
var ErrClosed = errors.New("store is closed")

// Error is the error type returned by every Store operation.
type Error struct {
	Kind   Kind
	Op     string // "open", "set", "remove", "replay", ...
	Path   string // log file or store directory, when relevant
	Offset int64  // byte offset of the bad record, KindCorrupt only
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Kind == KindCorrupt {
		fmt.Fprintf(&b, " at offset %d", e.Offset)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the package sentinels by Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// KindOf returns the Kind of the first *Error in err's chain, or
// KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func ioError(op, path string, err error) error {
	return &Error{Kind: KindIO, Op: op, Path: path, Err: err}
}
