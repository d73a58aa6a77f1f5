package logpipe

// MetricsSink is the narrow capability interface the core reports
// through, mirroring the Appender/Renderer/EventsHandler pattern
// rather than importing a concrete metrics package. Any collector that
// implements this can be wired in via WithMetrics.
type MetricsSink interface {
	RecordSubmitted()
	RecordDropped(appenderName, reason string)
	RecordSetupFailure(appenderName string)
	RecordRestart(appenderName string)
	ObserveDispatchLatency(seconds float64)
	SetMainQueueDepth(depth int)
	SetAppenderQueueDepth(appenderName string, depth int)
	SetAppenderState(appenderName string, state int)
}

// noopMetrics is installed when no sink is configured, so call sites
// never need a nil check.
type noopMetrics struct{}

func (noopMetrics) RecordSubmitted()                  {}
func (noopMetrics) RecordDropped(string, string)      {}
func (noopMetrics) RecordSetupFailure(string)         {}
func (noopMetrics) RecordRestart(string)              {}
func (noopMetrics) ObserveDispatchLatency(float64)    {}
func (noopMetrics) SetMainQueueDepth(int)             {}
func (noopMetrics) SetAppenderQueueDepth(string, int) {}
func (noopMetrics) SetAppenderState(string, int)      {}
