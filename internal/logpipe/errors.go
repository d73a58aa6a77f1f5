package logpipe

import "errors"

// Sentinel error kinds surfaced by the core. Producer-visible errors
// (MainQueueFull, ConfigurationError) propagate to the caller of Log or
// BuildLogWriter. The rest are absorbed internally — AppenderFailure by
// the AppenderWorker state machine, AdapterQueueFull by the events
// handler — and never reach a producer.
var (
	// MainQueueFull is returned by LogWriter.Log when the main queue
	// rejected the record after its poll-interval wait.
	MainQueueFull = errors.New("logpipe: main queue full")

	// ConfigurationError is returned at construction/parse time: a
	// mismatched appenders/levels slice length, or an invalid level
	// string.
	ConfigurationError = errors.New("logpipe: configuration error")

	// AppenderFailure marks a failure inside an appender's setup, write,
	// or teardown call. Never surfaced to producers.
	AppenderFailure = errors.New("logpipe: appender failure")

	// AdapterQueueFull marks a rejection from an appender adapter's
	// private queue. Routed through the events handler; never surfaced
	// to producers.
	AdapterQueueFull = errors.New("logpipe: adapter queue full")
)
