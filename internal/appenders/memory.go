package appenders

import (
	"errors"
	"sync"

	"github.com/emberlog/pipeline/internal/logpipe"
)

// ErrMemoryAppenderFailure is returned by MemoryAppender.Write when its
// FailNext hook requests a synthetic failure.
var ErrMemoryAppenderFailure = errors.New("appenders: memory appender induced failure")

// MemoryAppender accumulates rendered records in a slice, guarded by a
// mutex since tests read Records() from a different goroutine than the
// worker that writes to it. Its failure behavior is driven by an
// injectable hook so tests can exercise the AppenderWorker's
// WaitAfterFail/ToRestart transitions deterministically.
type MemoryAppender struct {
	name     string
	level    logpipe.Level
	renderer logpipe.Renderer

	mu          sync.Mutex
	records     []string
	setupCalls  int
	restartCall int

	// FailWrite, if set, is consulted on every Write call; a true
	// result causes that write to fail. FailSetup and FailRestart work
	// the same way for Setup and TryRestart respectively.
	FailWrite   func(record logpipe.LogRecord) bool
	FailSetup   func(attempt int) bool
	FailRestart func(attempt int) bool
}

// NewMemoryAppender builds a MemoryAppender with no induced failures.
func NewMemoryAppender(name string) *MemoryAppender {
	return &MemoryAppender{
		name:     name,
		renderer: NewDefaultRenderer(),
	}
}

// WithLevel sets the appender's own minimum level, used only when the
// appender is driven outside a LogWriter (BuildLogWriter overrides it
// with its own per-appender levels argument).
func (m *MemoryAppender) WithLevel(level logpipe.Level) *MemoryAppender {
	m.level = level
	return m
}

func (m *MemoryAppender) Name() string         { return m.name }
func (m *MemoryAppender) Level() logpipe.Level { return m.level }

func (m *MemoryAppender) Setup() error {
	m.mu.Lock()
	m.setupCalls++
	attempt := m.setupCalls
	m.mu.Unlock()

	if m.FailSetup != nil && m.FailSetup(attempt) {
		return ErrMemoryAppenderFailure
	}
	return m.renderer.Setup()
}

func (m *MemoryAppender) Write(record logpipe.LogRecord) error {
	if m.FailWrite != nil && m.FailWrite(record) {
		return ErrMemoryAppenderFailure
	}

	line, err := m.renderer.Render(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.records = append(m.records, line)
	m.mu.Unlock()
	return nil
}

func (m *MemoryAppender) TryRestart() bool {
	m.mu.Lock()
	m.restartCall++
	attempt := m.restartCall
	m.mu.Unlock()

	if m.FailRestart != nil {
		return !m.FailRestart(attempt)
	}
	return true
}

func (m *MemoryAppender) Teardown() error {
	return m.renderer.Teardown()
}

// Records returns a snapshot of every rendered record written so far.
func (m *MemoryAppender) Records() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.records))
	copy(out, m.records)
	return out
}
