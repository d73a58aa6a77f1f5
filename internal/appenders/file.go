package appenders

import (
	"bufio"
	"encoding/binary"
	"hash/crc32"
	"os"
	"sync"
	"time"

	"github.com/emberlog/pipeline/internal/logpipe"
)

// FileAppender batches rendered records and flushes them to disk
// together, trailing each batch with a CRC32 checksum over the
// batch's bytes so a reader can detect a torn write left by a crash
// mid-flush.
type FileAppender struct {
	name     string
	level    logpipe.Level
	path     string
	renderer logpipe.Renderer

	batchSize     int
	flushInterval time.Duration

	mu      sync.Mutex
	file    *os.File
	writer  *bufio.Writer
	pending [][]byte
	stopCh  chan struct{}
	flushWg sync.WaitGroup
}

// NewFileAppender builds a FileAppender writing to path, flushing
// every batchSize records or flushInterval, whichever comes first.
func NewFileAppender(name, path string, batchSize int, flushInterval time.Duration) *FileAppender {
	if batchSize <= 0 {
		batchSize = 1
	}
	return &FileAppender{
		name:          name,
		path:          path,
		renderer:      NewDefaultRenderer(),
		batchSize:     batchSize,
		flushInterval: flushInterval,
	}
}

// WithRenderer overrides the default layout renderer.
func (f *FileAppender) WithRenderer(r logpipe.Renderer) *FileAppender {
	f.renderer = r
	return f
}

// WithLevel sets the appender's own minimum level, used only when the
// appender is driven outside a LogWriter.
func (f *FileAppender) WithLevel(level logpipe.Level) *FileAppender {
	f.level = level
	return f
}

func (f *FileAppender) Name() string         { return f.name }
func (f *FileAppender) Level() logpipe.Level { return f.level }

func (f *FileAppender) Setup() error {
	if err := f.renderer.Setup(); err != nil {
		return err
	}

	file, err := os.OpenFile(f.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}

	f.mu.Lock()
	f.file = file
	f.writer = bufio.NewWriter(file)
	f.pending = f.pending[:0]
	f.stopCh = make(chan struct{})
	f.mu.Unlock()

	f.flushWg.Add(1)
	go f.flushLoop()
	return nil
}

// flushLoop periodically flushes a partial batch so records don't
// wait indefinitely for batchSize to be reached under low traffic.
func (f *FileAppender) flushLoop() {
	defer f.flushWg.Done()

	if f.flushInterval <= 0 {
		return
	}

	ticker := time.NewTicker(f.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			f.mu.Lock()
			_ = f.flushLocked()
			f.mu.Unlock()
		case <-f.stopCh:
			return
		}
	}
}

func (f *FileAppender) Write(record logpipe.LogRecord) error {
	line, err := f.renderer.Render(record)
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.pending = append(f.pending, []byte(line))
	if len(f.pending) >= f.batchSize {
		return f.flushLocked()
	}
	return nil
}

// flushLocked writes every pending line followed by a four-byte CRC32
// trailer computed over the batch's concatenated bytes, then clears
// the pending batch. Must be called with f.mu held.
func (f *FileAppender) flushLocked() error {
	if len(f.pending) == 0 {
		return nil
	}

	checksum := crc32.NewIEEE()
	for _, line := range f.pending {
		if _, err := f.writer.Write(line); err != nil {
			return err
		}
		if err := f.writer.WriteByte('\n'); err != nil {
			return err
		}
		checksum.Write(line)
		checksum.Write([]byte{'\n'})
	}

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], checksum.Sum32())
	if _, err := f.writer.Write(trailer[:]); err != nil {
		return err
	}

	f.pending = f.pending[:0]
	return f.writer.Flush()
}

// TryRestart closes whatever file handle and flush loop are still
// live, then attempts to reopen the file from scratch.
func (f *FileAppender) TryRestart() bool {
	_ = f.closeFile()
	return f.Setup() == nil
}

func (f *FileAppender) Teardown() error {
	closeErr := f.closeFile()
	if err := f.renderer.Teardown(); err != nil {
		return err
	}
	return closeErr
}

// closeFile stops the flush loop, flushes any pending batch, and
// closes the underlying file handle. Safe to call even if Setup was
// never called or already failed.
func (f *FileAppender) closeFile() error {
	f.mu.Lock()
	stopCh := f.stopCh
	f.stopCh = nil
	f.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		f.flushWg.Wait()
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	flushErr := f.flushLocked()
	var closeErr error
	if f.file != nil {
		closeErr = f.file.Close()
		f.file = nil
	}
	if flushErr != nil {
		return flushErr
	}
	return closeErr
}
