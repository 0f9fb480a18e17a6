package core

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/kjk/common/log"

	"github.com/0xRadioAc7iv/go-kvlog/internal/lock"
	"github.com/0xRadioAc7iv/go-kvlog/internal/record"
	"github.com/0xRadioAc7iv/go-kvlog/internal/utils"
)

var errNotDirectory = errors.New("not a directory")

// Store is a durable key-value store backed by an append-only log.
//
// Every mutation is appended and fsynced before it is applied to the
// in-memory Index, and Open rebuilds the Index by replaying the log, so the
// two never diverge.
//
// A Store does no locking of its own. Callers that share one across
// goroutines must serialize every call, e.g. behind a single mutex.
type Store struct {
	dir    string
	log    *Log
	index  *Index
	lock   *lock.Lock
	opts   options
	stale  int64 // log bytes held by overwritten, removed and tombstone records
	closed bool
}

// Stats describes the current size of a Store.
type Stats struct {
	Keys       int
	LogBytes   int64
	StaleBytes int64
}

// Open opens the store in dir, which must already exist, and replays its
// log. A torn record at the end of the log is cut off; corruption anywhere
// else fails with a KindCorrupt error.
func Open(dir string, opts ...Option) (s *Store, err error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	isDir, err := utils.IsDir(dir)
	if err != nil {
		return nil, &Error{Kind: KindInvalidStore, Op: "open", Path: dir, Err: err}
	}
	if !isDir {
		return nil, &Error{Kind: KindInvalidStore, Op: "open", Path: dir, Err: errNotDirectory}
	}

	var lk *lock.Lock
	if !o.noLock {
		lk, err = lock.Acquire(dir)
		if err != nil {
			return nil, &Error{Kind: KindInvalidStore, Op: "open", Path: dir, Err: err}
		}
		defer func() {
			if err != nil {
				lk.Release()
			}
		}()

		removeCompactionLeftovers(dir)
	}

	l, err := OpenLog(dir)
	if err != nil {
		return nil, ioError("open", filepath.Join(dir, LogFileName), err)
	}
	defer func() {
		if err != nil {
			l.Close()
		}
	}()

	s = &Store{
		dir:   dir,
		log:   l,
		index: NewIndex(),
		lock:  lk,
		opts:  o,
	}

	if err = s.replay(); err != nil {
		return nil, err
	}

	s.maybeCompact()

	return s, nil
}

func (s *Store) replay() error {
	lr := s.log.NewReader()
	var count int

	for {
		rec, err := lr.Next()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrTornTail) {
			log.Verbosef("kvs: dropping %d bytes of torn record at offset %d in %s\n",
				s.log.Size()-lr.Offset(), lr.Offset(), s.log.Path())
			if err := s.log.Truncate(lr.Offset()); err != nil {
				return ioError("replay", s.log.Path(), err)
			}
			break
		}
		if err != nil {
			if KindOf(err) == KindCorrupt {
				return err
			}
			return ioError("replay", s.log.Path(), err)
		}

		s.apply(rec)
		count++
	}

	log.Verbosef("kvs: replayed %d records from %s, %d keys live, %d stale bytes\n",
		count, s.log.Path(), s.index.Len(), s.stale)
	return nil
}

// apply reflects one record in the Index and keeps the stale byte count in
// step. Replay and live mutations share it, so both arrive at the same
// figure for the same log.
func (s *Store) apply(rec record.Record) {
	key := string(rec.Key)

	switch rec.Kind {
	case record.KindSet:
		if prev, ok := s.index.Set(key, rec.Value); ok {
			s.stale += record.FrameSize(len(key), len(prev))
		}
	case record.KindRemove:
		s.stale += rec.Size()
		if prev, ok := s.index.Remove(key); ok {
			s.stale += record.FrameSize(len(key), len(prev))
		}
	}
}

// Get returns a copy of the value stored under key. It never touches disk.
func (s *Store) Get(key []byte) ([]byte, bool) {
	if s.closed {
		return nil, false
	}
	v, ok := s.index.Get(string(key))
	if !ok {
		return nil, false
	}
	return bytes.Clone(v), true
}

// Set binds key to value. The record is durable when Set returns nil; on
// error the store is left exactly as it was.
func (s *Store) Set(key, value []byte) error {
	if s.closed {
		return ioError("set", s.dir, ErrClosed)
	}

	rec := record.Set(key, bytes.Clone(value))
	if _, err := s.log.Append(rec); err != nil {
		return ioError("set", s.log.Path(), err)
	}

	s.apply(rec)
	s.maybeCompact()
	return nil
}

// Remove deletes key. A missing key fails with KindKeyNotFound and writes
// nothing. If the tombstone cannot be appended the key stays in place.
func (s *Store) Remove(key []byte) error {
	if s.closed {
		return ioError("remove", s.dir, ErrClosed)
	}

	if _, ok := s.index.Get(string(key)); !ok {
		return &Error{Kind: KindKeyNotFound, Op: "remove"}
	}

	rec := record.Remove(key)
	if _, err := s.log.Append(rec); err != nil {
		return ioError("remove", s.log.Path(), err)
	}

	s.apply(rec)
	s.maybeCompact()
	return nil
}

// Len returns the number of live keys.
func (s *Store) Len() int {
	if s.closed {
		return 0
	}
	return s.index.Len()
}

// Keys returns the live keys in ascending byte order.
func (s *Store) Keys() []string {
	if s.closed {
		return nil
	}
	return s.index.Keys()
}

func (s *Store) Stats() Stats {
	if s.closed {
		return Stats{}
	}
	return Stats{
		Keys:       s.index.Len(),
		LogBytes:   s.log.Size(),
		StaleBytes: s.stale,
	}
}

func (s *Store) Dir() string {
	return s.dir
}

// Close flushes and closes the log and releases the directory lock. It is
// safe to call more than once.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.index = NewIndex()

	errLog := s.log.Close()
	errLock := s.lock.Release()

	if errLog != nil {
		return ioError("close", s.log.Path(), errLog)
	}
	if errLock != nil {
		return ioError("close", s.dir, errLock)
	}
	return nil
}

// removeCompactionLeftovers deletes temporary files a crash during
// compaction may have left next to the log. Compaction writes through
// os.CreateTemp(dir, LogFileName), so only the log name followed by digits
// is touched. Only called with the directory lock held.
func removeCompactionLeftovers(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !isCompactionTemp(entry.Name()) {
			continue
		}
		name := entry.Name()
		log.Verbosef("kvs: removing leftover compaction file %s\n", name)
		_ = os.Remove(filepath.Join(dir, name))
	}
}

func isCompactionTemp(name string) bool {
	suffix, ok := strings.CutPrefix(name, LogFileName)
	if !ok || suffix == "" {
		return false
	}
	for _, c := range suffix {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
