package logpipe

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

var log = slog.Default()

// dispatcher owns the main queue and is the single goroutine that ever
// reads from it. It fans each accepted record out to every adapter
// whose level filter accepts it, cloning per adapter so each
// appender's queue holds an independent copy.
type dispatcher struct {
	mainQueue *BoundedQueue[LogRecord]
	mainPoll  time.Duration

	mu       sync.RWMutex
	adapters map[string]*appenderAdapter
	order    []string
	// retired holds adapters removed via delAppender. Removal only
	// deregisters an adapter from future dispatch — its worker keeps
	// draining its queue until the writer itself is closed, at which
	// point every retired adapter is still torn down alongside the
	// active ones.
	retired []*appenderAdapter

	clock         clockz.Clock
	hooks         *stateHooks
	eventsHandler EventsHandler
	metrics       MetricsSink

	stopOnce sync.Once
	done     chan struct{}
}

func newDispatcher(mainQueueSize int, clock clockz.Clock) *dispatcher {
	if clock == nil {
		clock = clockz.RealClock
	}
	return &dispatcher{
		mainQueue: NewBoundedQueue[LogRecord](mainQueueSize),
		mainPoll:  mainPollDefault,
		adapters:  make(map[string]*appenderAdapter),
		clock:     clock,
		hooks:     newStateHooks(),
		metrics:   noopMetrics{},
		done:      make(chan struct{}),
	}
}

// setEventsHandler installs the handler consulted on adapter queue
// overflow. Must be called before start, or while no records are in
// flight — it is not synchronized against the dispatcher loop.
func (d *dispatcher) setEventsHandler(h EventsHandler) {
	d.eventsHandler = h
}

// addAppender registers a new appender and starts its worker
// goroutine. Returns false if an appender with the same name is
// already registered.
func (d *dispatcher) addAppender(appender Appender, queueSize int) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	name := appender.Name()
	if _, exists := d.adapters[name]; exists {
		return false
	}

	adapter := newAppenderAdapter(appender, queueSize, d.clock, d.hooks, d.metrics)
	d.adapters[name] = adapter
	d.order = append(d.order, name)
	adapter.start()
	log.Info("appender registered", "appender", name)
	return true
}

// delAppender deregisters a previously-registered appender from
// future dispatch. It does not tear the adapter down — its worker
// keeps consuming whatever is already queued until the writer itself
// is closed. Returns false if no appender with that name is
// registered.
func (d *dispatcher) delAppender(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	adapter, exists := d.adapters[name]
	if !exists {
		return false
	}
	delete(d.adapters, name)
	d.order = removeName(d.order, name)
	d.retired = append(d.retired, adapter)
	log.Info("appender deregistered from dispatch", "appender", name)
	return true
}

func removeName(names []string, target string) []string {
	out := names[:0]
	for _, n := range names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}

// appenderCount returns the number of currently registered appenders.
func (d *dispatcher) appenderCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.adapters)
}

// appenderNames returns the registered appenders' names, in
// registration order.
func (d *dispatcher) appenderNames() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, len(d.order))
	copy(names, d.order)
	return names
}

// activeLevels returns the per-appender filter levels of every
// currently registered (non-retired) adapter, in registration order.
func (d *dispatcher) activeLevels() []Level {
	d.mu.RLock()
	defer d.mu.RUnlock()

	levels := make([]Level, 0, len(d.order))
	for _, name := range d.order {
		levels = append(levels, d.adapters[name].appender.Level())
	}
	return levels
}

// enqueue hands a record to the main queue, waiting up to the main
// poll interval for space. Returns false (MainQueueFull, from the
// caller's perspective) if it was rejected.
func (d *dispatcher) enqueue(record LogRecord) bool {
	accepted := d.mainQueue.Enqueue(record, d.mainPoll)
	if accepted {
		d.metrics.RecordSubmitted()
	}
	d.metrics.SetMainQueueDepth(d.mainQueue.Size())
	return accepted
}

// run is the dispatcher's goroutine body: pull from the main queue,
// fan out to every accepting adapter, until the main queue shuts down
// and drains.
func (d *dispatcher) run() {
	defer close(d.done)
	for {
		record, outcome := d.mainQueue.Dequeue(d.mainPoll)
		switch outcome {
		case DequeueSignaled:
			d.fanOut(record)
		case DequeueTimeout:
			continue
		case DequeueShutdown:
			return
		}
	}
}

func (d *dispatcher) fanOut(record LogRecord) {
	start := d.clock.Now()
	defer func() {
		d.metrics.ObserveDispatchLatency(d.clock.Now().Sub(start).Seconds())
	}()

	d.mu.RLock()
	adapters := make([]*appenderAdapter, 0, len(d.order))
	for _, name := range d.order {
		adapters = append(adapters, d.adapters[name])
	}
	d.mu.RUnlock()

	for _, adapter := range adapters {
		if !adapter.accepts(record.Level) {
			continue
		}
		if adapter.offer(record, adapterPollDefault) {
			continue
		}

		action := SkipNewest
		if d.eventsHandler != nil {
			d.eventsHandler.OnAppenderError(adapter.name(), record, QueueFull, &action)
		}
		// DiscardOlder frees a slot by dropping the queue's head, but the
		// rejected record is not offered again: both records are lost.
		if action == DiscardOlder {
			adapter.dropOldest()
		}
		d.metrics.RecordDropped(adapter.name(), "queue_full")
		log.Warn("adapter queue full, record dropped", "appender", adapter.name(), "action", action)
	}
}

// stop shuts the main queue down, waits for the dispatcher loop to
// exit, then stops every adapter — active or retired — in
// registration order.
func (d *dispatcher) stop() {
	d.stopOnce.Do(func() {
		d.mainQueue.Shutdown()
		<-d.done

		d.mu.Lock()
		adapters := make([]*appenderAdapter, 0, len(d.order)+len(d.retired))
		for _, name := range d.order {
			adapters = append(adapters, d.adapters[name])
		}
		adapters = append(adapters, d.retired...)
		d.mu.Unlock()

		for _, adapter := range adapters {
			adapter.stop()
		}
		d.hooks.close()
	})
}

// AppenderSnapshot is a point-in-time view of one appender's worker,
// used by the diagnostics recorder and the status CLI command.
type AppenderSnapshot struct {
	Name       string
	QueueDepth int
	State      WorkerState
}

// snapshot returns a point-in-time view of every active appender, in
// registration order. Retired appenders (deregistered via delAppender
// but not yet torn down) are omitted — they no longer participate in
// dispatch.
func (d *dispatcher) snapshot() []AppenderSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]AppenderSnapshot, 0, len(d.order))
	for _, name := range d.order {
		adapter := d.adapters[name]
		out = append(out, AppenderSnapshot{
			Name:       name,
			QueueDepth: adapter.depth(),
			State:      adapter.state(),
		})
	}
	return out
}

// onStateChange subscribes to appender worker state transitions.
func (d *dispatcher) onStateChange(handler func(StateChangeEvent)) error {
	return d.hooks.on(func(_ context.Context, event StateChangeEvent) error {
		handler(event)
		return nil
	})
}
