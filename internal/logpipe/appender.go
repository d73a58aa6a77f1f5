package logpipe

import "time"

// Appender is the capability contract a sink must implement to receive
// dispatched records. Appenders are thread-affine: the core guarantees
// each appender is accessed from exactly one goroutine (its worker)
// after construction, so implementations need no internal locking of
// their own state.
type Appender interface {
	// Name returns a stable identifier used in metrics, diagnostics, and
	// the events handler callback. The core never uses reflection to
	// discover an appender's type — Name is the explicit substitute.
	Name() string

	// Level returns this appender's minimum accepted level. Set once at
	// construction via BuildLogWriter's per-appender levels argument.
	Level() Level

	// Setup prepares the appender to receive writes (opening files,
	// dialing connections, etc). May fail.
	Setup() error

	// Write delivers one record to the sink. May fail.
	Write(record LogRecord) error

	// TryRestart is invoked by the AppenderWorker after a cooldown
	// period following a Write or Setup failure. It should attempt to
	// recover the appender's resources (reconnect, reopen) and report
	// whether the appender is usable again.
	TryRestart() bool

	// Teardown releases the appender's resources. Always called exactly
	// once, on every worker exit path (normal termination or failure).
	Teardown() error
}

// Renderer turns a LogRecord into output text for a sink. The core
// neither inspects nor enforces a Renderer's output format — Renderer is
// invoked entirely inside an appender, on the appender's own worker
// goroutine.
type Renderer interface {
	Setup() error
	Teardown() error
	Render(record LogRecord) (string, error)
}

// OverflowAction selects how the Dispatcher responds when an appender's
// adapter queue rejects a record.
type OverflowAction int

const (
	// SkipNewest drops the record that could not be enqueued. This is
	// the default action when no events handler overrides it.
	SkipNewest OverflowAction = iota

	// DiscardOlder removes one record from the head of the adapter's
	// queue. The new record is NOT retried afterward — the net effect
	// is to drop the new record *and* one queued record. This is
	// preserved deliberately for compatibility with documented (if
	// counter-intuitive) upstream behavior; see dispatcher.go.
	DiscardOlder
)

func (a OverflowAction) String() string {
	switch a {
	case SkipNewest:
		return "SkipNewest"
	case DiscardOlder:
		return "DiscardOlder"
	default:
		return "Unknown"
	}
}

// OverflowReason is always QueueFull in the current design; it exists as
// a named type to leave room for future reasons without an interface
// break.
type OverflowReason int

// QueueFull is the only OverflowReason the core currently produces.
const QueueFull OverflowReason = 0

// EventsHandler is consulted synchronously, on the dispatcher goroutine,
// whenever an appender's adapter queue rejects a record. action starts
// at SkipNewest; OnAppenderError may overwrite it to change the
// Dispatcher's response for this one record.
//
// Contract: OnAppenderError must not call back into the same
// LogWriter's Log method. Re-entrancy is undefined — a full main queue
// would deadlock the dispatcher against itself.
type EventsHandler interface {
	OnAppenderError(appenderName string, failedRecord LogRecord, reason OverflowReason, action *OverflowAction)
}

// WorkerState names the AppenderWorker's state machine states, exposed
// for diagnostics and the OnAppenderStateChange hook.
type WorkerState int

const (
	BeforeSetup WorkerState = iota
	Running
	WaitAfterFail
	ToRestart
	BeforeTearDown
)

func (s WorkerState) String() string {
	switch s {
	case BeforeSetup:
		return "BeforeSetup"
	case Running:
		return "Running"
	case WaitAfterFail:
		return "WaitAfterFail"
	case ToRestart:
		return "ToRestart"
	case BeforeTearDown:
		return "BeforeTearDown"
	default:
		return "Unknown"
	}
}

// State machine tuning constants.
const (
	maxSetupFailures   = 10
	setupRetrySleep    = 1 * time.Second
	failCooldownSleep  = 500 * time.Millisecond
	restartQuantum     = 5 * time.Second
	adapterPollDefault = 10 * time.Millisecond
	mainPollDefault    = 500 * time.Millisecond

	// DefaultMainQueueSize is the main queue's default capacity.
	DefaultMainQueueSize = 50000
	// DefaultAppenderQueueSize is each adapter queue's default capacity.
	DefaultAppenderQueueSize = 50000
)
