package logpipe

import (
	"time"

	"github.com/zoobzio/clockz"
)

// appenderAdapter pairs one Appender with its private queue and worker
// goroutine. The Dispatcher only ever talks to an adapter's public
// surface — enqueue and the level filter — never to the appender
// directly.
type appenderAdapter struct {
	appender Appender
	queue    *BoundedQueue[LogRecord]
	worker   *appenderWorker
}

func newAppenderAdapter(appender Appender, queueSize int, clock clockz.Clock, hooks *stateHooks, metrics MetricsSink) *appenderAdapter {
	queue := NewBoundedQueue[LogRecord](queueSize)
	worker := newAppenderWorker(appender, queue, clock, hooks, metrics)
	return &appenderAdapter{
		appender: appender,
		queue:    queue,
		worker:   worker,
	}
}

// start launches the adapter's worker goroutine. Must be called
// exactly once.
func (a *appenderAdapter) start() {
	go a.worker.run()
}

// accepts reports whether this adapter's appender wants to see a
// record of the given level.
func (a *appenderAdapter) accepts(level Level) bool {
	return level >= a.appender.Level()
}

// offer attempts to enqueue a clone of record for this adapter,
// waiting up to pollInterval for space. Returns false if the record
// was rejected (queue full or adapter shut down).
func (a *appenderAdapter) offer(record LogRecord, pollInterval time.Duration) bool {
	accepted := a.queue.Enqueue(record.Clone(), pollInterval)
	a.worker.metrics.SetAppenderQueueDepth(a.name(), a.queue.Size())
	return accepted
}

// dropOldest removes one record from the head of the adapter's queue,
// implementing DiscardOlder's overflow semantics.
func (a *appenderAdapter) dropOldest() {
	a.queue.dropFront()
}

// name returns the adapter's appender's stable name.
func (a *appenderAdapter) name() string {
	return a.appender.Name()
}

// stop shuts the adapter's queue down and waits for its worker to
// finish tearing the appender down.
func (a *appenderAdapter) stop() {
	a.worker.stopAndWait()
}

// depth returns the adapter's current queue occupancy.
func (a *appenderAdapter) depth() int {
	return a.queue.Size()
}

// state returns the adapter's worker's current state.
func (a *appenderAdapter) state() WorkerState {
	return a.worker.currentState()
}
