package logpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDispatcher(t *testing.T) *dispatcher {
	d := newDispatcher(16, nil)
	t.Cleanup(d.stop)
	return d
}

func TestDispatcher_AddAppenderRejectsDuplicateNames(t *testing.T) {
	d := newTestDispatcher(t)

	assert.True(t, d.addAppender(&scriptedAppender{name: "a"}, 10))
	assert.False(t, d.addAppender(&scriptedAppender{name: "a"}, 10))
	assert.Equal(t, 1, d.appenderCount())
}

func TestDispatcher_AppenderNamesPreservesRegistrationOrder(t *testing.T) {
	d := newTestDispatcher(t)

	d.addAppender(&scriptedAppender{name: "first"}, 10)
	d.addAppender(&scriptedAppender{name: "second"}, 10)
	d.addAppender(&scriptedAppender{name: "third"}, 10)

	assert.Equal(t, []string{"first", "second", "third"}, d.appenderNames())
}

func TestDispatcher_DelAppenderDeregistersButDoesNotTearDown(t *testing.T) {
	d := newTestDispatcher(t)
	appender := &scriptedAppender{name: "a"}
	d.addAppender(appender, 10)

	require.True(t, d.delAppender("a"))
	assert.Equal(t, 0, d.appenderCount())
	assert.Equal(t, int32(0), appender.teardownCall.Load(), "a retired adapter is not torn down until the writer closes")

	assert.False(t, d.delAppender("a"), "a second delAppender for the same name should report nothing to remove")
}

func TestDispatcher_StopTearsDownRetiredAdaptersToo(t *testing.T) {
	d := newDispatcher(16, nil)
	appender := &scriptedAppender{name: "a"}
	d.addAppender(appender, 10)

	d.delAppender("a")
	d.stop()

	assert.Equal(t, int32(1), appender.teardownCall.Load())
}

func TestDispatcher_FanOutDeliversToAcceptingAppendersOnly(t *testing.T) {
	d := newTestDispatcher(t)

	quiet := &scriptedAppender{name: "quiet"}
	loud := &scriptedAppender{name: "loud"}
	d.addAppender(levelBoundAppender{Appender: quiet, level: Error}, 10)
	d.addAppender(levelBoundAppender{Appender: loud, level: Debug}, 10)

	go d.run()

	d.enqueue(NewRecord(Info, "informational", ""))

	require.Eventually(t, func() bool {
		return loud.writeCalls.Load() >= 1
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), quiet.writeCalls.Load(), "below-threshold appender should never see the record")
}

func TestDispatcher_FanOutInvokesEventsHandlerOnOverflow(t *testing.T) {
	d := newDispatcher(16, nil)

	release := make(chan struct{})
	blocked := &scriptedAppender{
		name: "blocked",
		writeFn: func(record LogRecord) error {
			<-release
			return nil
		},
	}
	d.addAppender(blocked, 1)
	t.Cleanup(func() {
		close(release)
		d.stop()
	})

	var capturedAppender string
	var capturedReason OverflowReason
	done := make(chan struct{}, 4)
	d.setEventsHandler(eventsHandlerFunc(func(appenderName string, record LogRecord, reason OverflowReason, action *OverflowAction) {
		capturedAppender = appenderName
		capturedReason = reason
		select {
		case done <- struct{}{}:
		default:
		}
	}))

	go d.run()

	// the first record is picked up by the worker and blocks in Write;
	// the second fills the adapter's queue (capacity 1); the third
	// onward overflow, since offer's poll interval is short.
	for i := 0; i < 5; i++ {
		d.enqueue(NewRecord(Info, "msg", ""))
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("events handler was never invoked on overflow")
	}
	assert.Equal(t, "blocked", capturedAppender)
	assert.Equal(t, QueueFull, capturedReason)
}

func TestDispatcher_SnapshotOmitsRetiredAdapters(t *testing.T) {
	d := newDispatcher(16, nil)
	t.Cleanup(d.stop)

	d.addAppender(&scriptedAppender{name: "kept"}, 10)
	d.addAppender(&scriptedAppender{name: "removed"}, 10)
	d.delAppender("removed")

	names := make([]string, 0)
	for _, s := range d.snapshot() {
		names = append(names, s.Name)
	}
	assert.Equal(t, []string{"kept"}, names)
}

func TestDispatcher_EnqueueReportsQueueFullWhenShutDown(t *testing.T) {
	d := newDispatcher(1, nil)
	d.mainQueue.Shutdown()

	assert.False(t, d.enqueue(NewRecord(Info, "x", "")))
}

// eventsHandlerFunc adapts a function literal to the EventsHandler
// interface, mirroring Go's http.HandlerFunc pattern.
type eventsHandlerFunc func(appenderName string, record LogRecord, reason OverflowReason, action *OverflowAction)

func (f eventsHandlerFunc) OnAppenderError(appenderName string, record LogRecord, reason OverflowReason, action *OverflowAction) {
	f(appenderName, record, reason, action)
}
