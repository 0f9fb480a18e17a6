package core

import (
	"bufio"
	"io"

	"github.com/kjk/common/log"

	"github.com/0xRadioAc7iv/go-kvlog/internal/record"
)

// Compact rewrites the log so it holds exactly one Set record per live key,
// in key order. The replacement is built in a temporary file, fsynced and
// renamed over the old log; a crash at any point leaves one complete log.
func (s *Store) Compact() error {
	if s.closed {
		return ioError("compact", s.dir, ErrClosed)
	}

	before := s.log.Size()
	keys := s.index.Keys()

	err := s.log.rewrite(func(w io.Writer) error {
		bw := bufio.NewWriter(w)
		for _, key := range keys {
			value, _ := s.index.Get(key)
			if _, err := bw.Write(record.Encode(record.Set([]byte(key), value))); err != nil {
				return err
			}
		}
		return bw.Flush()
	})
	if err != nil {
		return ioError("compact", s.log.Path(), err)
	}

	s.stale = 0
	log.Verbosef("kvs: compacted %s from %d to %d bytes, %d keys\n", s.log.Path(), before, s.log.Size(), len(keys))
	return nil
}

// maybeCompact runs Compact once the stale bytes reach the configured
// threshold. It is only called after a mutation is already durable, so a
// failure here is reported but does not fail that mutation; the old log is
// still intact and the next mutation tries again.
func (s *Store) maybeCompact() {
	threshold := s.opts.compactThreshold
	if threshold <= 0 || s.stale < threshold {
		return
	}

	if err := s.Compact(); err != nil {
		log.Errorf("kvs: compaction failed: %v", err)
	}
}
