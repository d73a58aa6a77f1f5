package logpipe

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
)

// LogWriter is the producer-facing façade: the only type application
// code calls directly. Internally it owns the main queue and the
// dispatcher goroutine that drains it.
type LogWriter struct {
	dispatcher *dispatcher
	enabled    atomic.Bool
	minLevel   atomic.Int32

	queueSize       int
	appenderQueueSz int

	stopOnce sync.Once
}

// Option configures a LogWriter at construction time.
type Option func(*LogWriter)

// WithMainQueueSize overrides the main queue's capacity.
func WithMainQueueSize(size int) Option {
	return func(w *LogWriter) { w.queueSize = size }
}

// WithAppenderQueueSize overrides each adapter's queue capacity.
func WithAppenderQueueSize(size int) Option {
	return func(w *LogWriter) { w.appenderQueueSz = size }
}

// WithEventsHandler installs the handler consulted on adapter queue
// overflow.
func WithEventsHandler(h EventsHandler) Option {
	return func(w *LogWriter) { w.dispatcher.setEventsHandler(h) }
}

// WithClock injects a clock abstraction in place of the real wall
// clock, for deterministic tests of appender restart/cooldown timing.
func WithClock(clock clockz.Clock) Option {
	return func(w *LogWriter) { w.dispatcher.clock = clock }
}

// WithMetrics installs a MetricsSink the writer reports queue depths,
// drop counts, and worker state transitions through.
func WithMetrics(sink MetricsSink) Option {
	return func(w *LogWriter) {
		if sink != nil {
			w.dispatcher.metrics = sink
		}
	}
}

// BuildLogWriter constructs a LogWriter, registers the given appenders
// at their paired levels, and starts the dispatcher goroutine plus one
// worker goroutine per appender. appenders and levels must be the same
// length.
func BuildLogWriter(appenders []Appender, levels []Level, opts ...Option) (*LogWriter, error) {
	if len(appenders) != len(levels) {
		return nil, fmt.Errorf("%w: %d appenders but %d levels", ConfigurationError, len(appenders), len(levels))
	}

	w := &LogWriter{
		queueSize:       DefaultMainQueueSize,
		appenderQueueSz: DefaultAppenderQueueSize,
	}
	w.dispatcher = newDispatcher(DefaultMainQueueSize, clockz.RealClock)
	w.enabled.Store(true)

	for _, opt := range opts {
		opt(w)
	}

	// queueSize may have been overridden after dispatcher construction;
	// rebuild if necessary before any appender is added.
	if w.queueSize != DefaultMainQueueSize {
		clock := w.dispatcher.clock
		handler := w.dispatcher.eventsHandler
		metrics := w.dispatcher.metrics
		w.dispatcher = newDispatcher(w.queueSize, clock)
		w.dispatcher.setEventsHandler(handler)
		w.dispatcher.metrics = metrics
	}

	for i, appender := range appenders {
		boundAppender := levelBoundAppender{Appender: appender, level: levels[i]}
		if !w.dispatcher.addAppender(boundAppender, w.appenderQueueSz) {
			return nil, fmt.Errorf("%w: duplicate appender name %q", ConfigurationError, appender.Name())
		}
	}
	w.recomputeMinLevel()

	go w.dispatcher.run()
	return w, nil
}

// recomputeMinLevel recomputes min_level as the minimum level across
// every currently registered appender, so Log can reject records no
// appender could possibly consume before they ever reach the main
// queue. With no appenders registered, min_level is Debug — nothing is
// filtered.
func (w *LogWriter) recomputeMinLevel() {
	levels := w.dispatcher.activeLevels()
	if len(levels) == 0 {
		w.minLevel.Store(int32(Debug))
		return
	}
	min := levels[0]
	for _, lvl := range levels[1:] {
		if lvl < min {
			min = lvl
		}
	}
	w.minLevel.Store(int32(min))
}

// MinLevel returns the writer's currently computed minimum level: the
// lowest level any registered appender accepts. Log rejects records
// below it without ever submitting them to the main queue.
func (w *LogWriter) MinLevel() Level {
	return Level(w.minLevel.Load())
}

// levelBoundAppender overrides an appender's Level with the one the
// writer was configured with, since BuildLogWriter takes levels as a
// separate parallel argument rather than something each Appender
// reports about itself.
type levelBoundAppender struct {
	Appender
	level Level
}

func (a levelBoundAppender) Level() Level { return a.level }

// Log submits a record to the main queue. If the writer is disabled or
// level is below min_level, Log is a silent no-op — no appender could
// consume a record below min_level, so it is rejected at the producer
// rather than spent on a round trip through the queue. Otherwise it
// returns MainQueueFull if the queue could not accept the record
// within its poll interval.
func (w *LogWriter) Log(level Level, message, tag string) error {
	if !w.enabled.Load() || level < w.MinLevel() {
		return nil
	}
	record := NewRecord(level, message, tag)
	if !w.dispatcher.enqueue(record) {
		return MainQueueFull
	}
	return nil
}

// Enable turns record submission back on. BuildLogWriter starts
// enabled.
func (w *LogWriter) Enable() { w.enabled.Store(true) }

// Disable makes Log a no-op without tearing anything down; queued and
// in-flight records continue draining normally.
func (w *LogWriter) Disable() { w.enabled.Store(false) }

// AddAppender registers a new appender at the given level while the
// writer is running. Recomputes min_level, which may lower it.
func (w *LogWriter) AddAppender(appender Appender, level Level) error {
	bound := levelBoundAppender{Appender: appender, level: level}
	if !w.dispatcher.addAppender(bound, w.appenderQueueSz) {
		return fmt.Errorf("%w: duplicate appender name %q", ConfigurationError, appender.Name())
	}
	w.recomputeMinLevel()
	return nil
}

// DelAppender removes a previously-registered appender from future
// dispatch. Its worker keeps draining whatever is already queued for
// it until the writer itself is closed; this is a deliberate design
// choice, not a bug. Recomputes min_level, which may raise it.
func (w *LogWriter) DelAppender(name string) bool {
	removed := w.dispatcher.delAppender(name)
	if removed {
		w.recomputeMinLevel()
	}
	return removed
}

// AppendersCount returns the number of currently registered appenders.
func (w *LogWriter) AppendersCount() int {
	return w.dispatcher.appenderCount()
}

// AppenderClassNames returns the registered appenders' names, in
// registration order. Named for the upstream "class names" wording;
// the core has no notion of reflection-derived class names, only the
// explicit Appender.Name() each implementation reports.
func (w *LogWriter) AppenderClassNames() []string {
	return w.dispatcher.appenderNames()
}

// Snapshot returns a point-in-time view of every active appender's
// queue depth and worker state, for diagnostics and status reporting.
func (w *LogWriter) Snapshot() []AppenderSnapshot {
	return w.dispatcher.snapshot()
}

// MainQueueDepth returns the main queue's current occupancy.
func (w *LogWriter) MainQueueDepth() int {
	return w.dispatcher.mainQueue.Size()
}

// OnAppenderStateChange subscribes to appender worker state
// transitions, for diagnostics and monitoring. It is additive to, and
// independent of, the mandatory EventsHandler contract.
func (w *LogWriter) OnAppenderStateChange(handler func(StateChangeEvent)) error {
	return w.dispatcher.onStateChange(handler)
}

// Close stops the dispatcher and every appender worker, blocking until
// all appenders have torn down. Idempotent.
func (w *LogWriter) Close() {
	w.stopOnce.Do(func() {
		w.dispatcher.stop()
	})
}
