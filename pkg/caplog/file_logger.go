package caplog

import (
	"errors"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"
)

// FileLogger appends capture events to a file as a CBOR stream. Paths
// ending in CompressedSuffix are zstd-compressed; their tail is only
// flushed on Close.
//
// A FileLogger is safe for concurrent use.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	zw     *zstd.Encoder
	enc    *cbor.Encoder
	closed bool
}

// NewFileLogger opens (or creates, mode 0644) the capture file at path.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}

	l := &FileLogger{file: f}
	var w io.Writer = f
	if IsCompressed(path) {
		l.zw, err = newCompressor(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		w = l.zw
	}
	l.enc = NewEncoder(w)
	return l, nil
}

// Log appends event. Write errors are dropped so that capture never
// disturbs a station run.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	_ = l.enc.Encode(event)
}

// Close flushes and closes the file. Later calls to Close or Log are no-ops.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var zerr error
	if l.zw != nil {
		zerr = l.zw.Close()
	}
	return errors.Join(zerr, l.file.Close())
}

var _ Logger = (*FileLogger)(nil)
