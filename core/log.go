package core

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"path/filepath"

	"github.com/kjk/common/atomicfile"

	"github.com/0xRadioAc7iv/go-kvlog/internal/record"
	"github.com/0xRadioAc7iv/go-kvlog/internal/utils"
)

// ErrTornTail reports a trailing frame that is incomplete or fails its
// checksum. It can only come from an append interrupted by a crash, so
// replay stops there instead of failing.
var ErrTornTail = errors.New("torn record at end of log")

// Log is the append-only file of records backing a Store.
//
// Frames are written at an explicit append cursor with WriteAt and fsynced
// before Append returns. The cursor always sits on a frame boundary: a
// failed write is cut back off the file and the cursor is left untouched.
type Log struct {
	path   string
	file   *os.File
	offset int64 // append cursor, also the number of valid bytes
}

// OpenLog opens or creates the log file inside dir. It does not replay.
func OpenLog(dir string) (*Log, error) {
	path := filepath.Join(dir, LogFileName)

	_, statErr := os.Stat(path)
	created := os.IsNotExist(statErr)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}

	if created {
		// make the new directory entry durable along with the file
		if err := utils.SyncDir(dir); err != nil {
			f.Close()
			return nil, err
		}
	}

	// Sets the cursor to the end of the existing log
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Log{path: path, file: f, offset: size}, nil
}

func (l *Log) Path() string {
	return l.path
}

// Size returns the number of bytes covered by the append cursor.
func (l *Log) Size() int64 {
	return l.offset
}

// Append writes r at the cursor and fsyncs. It returns the frame size.
func (l *Log) Append(r record.Record) (int64, error) {
	if l.file == nil {
		return 0, ErrClosed
	}

	data := record.Encode(r)

	n, err := l.file.WriteAt(data, l.offset)
	if err == nil {
		err = l.Sync()
	}
	if err != nil {
		// Drop whatever part of the frame reached the file so the next
		// append starts on a clean boundary.
		_ = l.file.Truncate(l.offset)
		return 0, err
	}

	l.offset += int64(n)
	return int64(n), nil
}

// Truncate cuts the log at size, which must be a frame boundary.
func (l *Log) Truncate(size int64) error {
	if l.file == nil {
		return ErrClosed
	}
	if err := utils.TruncateAt(l.file, size); err != nil {
		return err
	}
	l.offset = size
	return nil
}

// Sync flushes the log file to stable storage.
func (l *Log) Sync() error {
	if l.file == nil {
		return ErrClosed
	}
	return l.file.Sync()
}

// Close syncs and closes the file. Calling Close more than once is a no-op.
func (l *Log) Close() error {
	if l.file == nil {
		return nil
	}
	errSync := l.Sync()
	f := l.file
	l.file = nil
	errClose := f.Close()
	if errSync != nil {
		return errSync
	}
	return errClose
}

// NewReader returns a reader positioned at offset 0. It reads through its
// own section of the file, so it never moves the append cursor, and a new
// reader yields the same records as long as nothing was appended.
func (l *Log) NewReader() *LogReader {
	lr := &LogReader{path: l.path}
	if l.file == nil {
		lr.r = bufio.NewReader(eofReader{})
		return lr
	}
	lr.r = bufio.NewReader(io.NewSectionReader(l.file, 0, l.offset))
	lr.size = l.offset
	return lr
}

// Records iterates over the log from the start. Iteration ends after the
// first non-nil error, which is yielded.
func (l *Log) Records() iter.Seq2[record.Record, error] {
	return func(yield func(record.Record, error) bool) {
		lr := l.NewReader()
		for {
			rec, err := lr.Next()
			if err == io.EOF {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// rewrite replaces the whole log with what write produces. The new content
// goes to a temporary file that is fsynced and renamed over the log, so a
// crash leaves either the old or the new file, never a mix.
func (l *Log) rewrite(write func(w io.Writer) error) error {
	if l.file == nil {
		return ErrClosed
	}

	af, err := atomicfile.New(l.path)
	if err != nil {
		return err
	}
	defer af.RemoveIfNotClosed()

	if err := write(af); err != nil {
		return err
	}
	if err := af.Close(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_RDWR, 0644)
	if err != nil {
		// The old handle now points at an unlinked file; appending to it
		// would silently lose data.
		l.file.Close()
		l.file = nil
		return fmt.Errorf("reopen compacted log: %w", err)
	}
	size, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		l.file.Close()
		l.file = nil
		return fmt.Errorf("reopen compacted log: %w", err)
	}

	old := l.file
	l.file = f
	l.offset = size
	return old.Close()
}

// LogReader yields the records of a log in order.
type LogReader struct {
	r      *bufio.Reader
	path   string
	offset int64 // end of the last good frame
	size   int64
	header [record.HeaderSize]byte
}

// Offset returns the byte offset just past the last record returned.
func (lr *LogReader) Offset() int64 {
	return lr.offset
}

// Next returns the next record. At the clean end of the log it returns
// io.EOF.
//
// ErrTornTail is only returned where a crashed append can explain the
// damage: fewer than a header's worth of bytes left, or a header that passes
// its checksum but describes a frame that is cut short or fails its own
// checksum as the very last frame. A header that fails its checksum, or a
// bad frame with data after it, yields a KindCorrupt *Error. Other errors
// come from the file itself.
func (lr *LogReader) Next() (record.Record, error) {
	remaining := lr.size - lr.offset
	if remaining == 0 {
		return record.Record{}, io.EOF
	}
	if remaining < record.HeaderSize {
		return record.Record{}, ErrTornTail
	}

	if _, err := io.ReadFull(lr.r, lr.header[:]); err != nil {
		return record.Record{}, err
	}

	h, err := record.DecodeHeader(lr.header[:])
	if err != nil {
		return record.Record{}, lr.corrupt(err)
	}

	frameSize := h.Size()
	if frameSize > remaining {
		return record.Record{}, ErrTornTail
	}

	frame := make([]byte, frameSize)
	copy(frame, lr.header[:])
	if _, err := io.ReadFull(lr.r, frame[record.HeaderSize:]); err != nil {
		return record.Record{}, err
	}

	rec, err := record.Decode(frame)
	if err != nil {
		if frameSize == remaining {
			return record.Record{}, ErrTornTail
		}
		return record.Record{}, lr.corrupt(err)
	}

	lr.offset += frameSize
	return rec, nil
}

func (lr *LogReader) corrupt(err error) error {
	return &Error{Kind: KindCorrupt, Op: "replay", Path: lr.path, Offset: lr.offset, Err: err}
}

type eofReader struct{}

func (eofReader) Read([]byte) (int, error) { return 0, io.EOF }
