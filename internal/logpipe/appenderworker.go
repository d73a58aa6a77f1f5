package logpipe

import (
	"sync/atomic"
	"time"

	"github.com/zoobzio/clockz"
)

// appenderWorker drives one appender through its state machine on its
// own goroutine. It never touches another appender's state, and
// nothing outside this goroutine calls the appender's methods once the
// worker has started — that exclusivity is what lets Appender
// implementations skip their own locking.
type appenderWorker struct {
	appender Appender
	queue    *BoundedQueue[LogRecord]
	clock    clockz.Clock
	hooks    *stateHooks
	metrics  MetricsSink

	adapterPoll  time.Duration
	setupSleep   time.Duration
	cooldown     time.Duration
	restartEvery time.Duration

	state       WorkerState
	stateAtomic atomic.Int32
	lastErrorAt time.Time
	done        chan struct{}
}

func newAppenderWorker(appender Appender, queue *BoundedQueue[LogRecord], clock clockz.Clock, hooks *stateHooks, metrics MetricsSink) *appenderWorker {
	if clock == nil {
		clock = clockz.RealClock
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &appenderWorker{
		appender:     appender,
		queue:        queue,
		clock:        clock,
		hooks:        hooks,
		metrics:      metrics,
		adapterPoll:  adapterPollDefault,
		setupSleep:   setupRetrySleep,
		cooldown:     failCooldownSleep,
		restartEvery: restartQuantum,
		state:        BeforeSetup,
		done:         make(chan struct{}),
	}
}

// run is the worker's goroutine body. It returns only when the worker
// has torn its appender down for good, which happens only once the
// queue has been shut down — a setup or write failure, however
// persistent, always leaves the appender in the cooldown/restart cycle
// rather than exiting the loop.
func (w *appenderWorker) run() {
	defer close(w.done)
	defer w.teardown()

	for {
		switch w.state {
		case BeforeSetup:
			w.runSetupPhase()
		case Running:
			w.runRunningPhase()
		case WaitAfterFail:
			w.runWaitAfterFailPhase()
		case ToRestart:
			w.runToRestartPhase()
		case BeforeTearDown:
			return
		}
	}
}

// runSetupPhase retries Setup up to maxSetupFailures times (>= on the
// boundary), sleeping setupSleep between attempts. Once setup never
// succeeds it stops retrying and hands the appender to the same
// cooldown/restart cycle a runtime write failure would — the appender
// stays alive and recovers through TryRestart rather than being torn
// down for good.
func (w *appenderWorker) runSetupPhase() {
	failures := 0
	for {
		err := w.appender.Setup()
		if err == nil {
			w.transition(Running)
			return
		}
		log.Warn("appender setup failed", "appender", w.appender.Name(), "attempt", failures+1, "error", err)
		failures++
		w.metrics.RecordSetupFailure(w.appender.Name())
		if failures >= maxSetupFailures {
			log.Error("appender exceeded setup failure limit, entering cooldown", "appender", w.appender.Name(), "attempts", failures)
			w.lastErrorAt = w.clock.Now()
			w.transition(WaitAfterFail)
			return
		}
		w.sleep(w.setupSleep)
	}
}

// runRunningPhase drains the adapter queue, writing each record until
// a Write fails or the queue shuts down with nothing left to drain.
func (w *appenderWorker) runRunningPhase() {
	for {
		record, outcome := w.queue.Dequeue(w.adapterPoll)
		switch outcome {
		case DequeueSignaled:
			if err := w.appender.Write(record); err != nil {
				log.Warn("appender write failed", "appender", w.appender.Name(), "error", err)
				w.lastErrorAt = w.clock.Now()
				w.transition(WaitAfterFail)
				return
			}
		case DequeueTimeout:
			continue
		case DequeueShutdown:
			w.transition(BeforeTearDown)
			return
		}
	}
}

// runWaitAfterFailPhase sleeps in cooldown-sized increments until at
// least restartEvery has elapsed since lastErrorAt, then moves to
// ToRestart. Exits to BeforeTearDown immediately if the queue is shut
// down while cooling down, dropping whatever is still queued.
func (w *appenderWorker) runWaitAfterFailPhase() {
	for {
		w.sleep(w.cooldown)
		if w.queue.isShutdown() {
			w.transition(BeforeTearDown)
			return
		}
		if w.clock.Now().Sub(w.lastErrorAt) >= w.restartEvery {
			w.transition(ToRestart)
			return
		}
	}
}

// runToRestartPhase asks the appender to recover exactly once. On
// success it resumes Running; on failure it records the failure time
// and falls back to WaitAfterFail, which paces the next attempt.
func (w *appenderWorker) runToRestartPhase() {
	if w.appender.TryRestart() {
		w.metrics.RecordRestart(w.appender.Name())
		w.transition(Running)
		return
	}
	w.lastErrorAt = w.clock.Now()
	w.transition(WaitAfterFail)
}

func (w *appenderWorker) teardown() {
	if err := w.appender.Teardown(); err != nil {
		log.Error("appender teardown failed", "appender", w.appender.Name(), "error", err)
	}
}

func (w *appenderWorker) transition(to WorkerState) {
	from := w.state
	w.state = to
	w.stateAtomic.Store(int32(to))
	w.metrics.SetAppenderState(w.appender.Name(), int(to))
	log.Debug("appender worker state change", "appender", w.appender.Name(), "from", from, "to", to)
	if w.hooks != nil {
		w.hooks.emit(w.appender.Name(), from, to)
	}
}

func (w *appenderWorker) sleep(d time.Duration) {
	<-w.clock.After(d)
}

// stopAndWait shuts the worker's queue down and blocks until its
// goroutine has torn the appender down and exited.
func (w *appenderWorker) stopAndWait() {
	w.queue.Shutdown()
	<-w.done
}

// currentState returns the worker's current state. Safe to call from
// any goroutine, unlike reading w.state directly.
func (w *appenderWorker) currentState() WorkerState {
	return WorkerState(w.stateAtomic.Load())
}
