package logpipe

import (
	"context"

	"github.com/zoobzio/hookz"
)

// StateChangeEvent is emitted whenever an AppenderWorker transitions
// between states. It is purely observational — nothing in the core
// reads its own emissions back.
type StateChangeEvent struct {
	Appender string
	From     WorkerState
	To       WorkerState
}

const stateChangeKey = hookz.Key("appender.state_change")

// stateHooks wraps a hookz.Hooks[StateChangeEvent], giving the writer an
// OnAppenderStateChange subscription point without disturbing the
// mandatory, synchronous EventsHandler.OnAppenderError contract.
type stateHooks struct {
	hooks *hookz.Hooks[StateChangeEvent]
}

func newStateHooks() *stateHooks {
	return &stateHooks{hooks: hookz.New[StateChangeEvent]()}
}

// on registers a handler invoked asynchronously on every appender state
// transition.
func (h *stateHooks) on(handler func(context.Context, StateChangeEvent) error) error {
	_, err := h.hooks.Hook(stateChangeKey, handler)
	return err
}

func (h *stateHooks) emit(appender string, from, to WorkerState) {
	_ = h.hooks.Emit(context.Background(), stateChangeKey, StateChangeEvent{
		Appender: appender,
		From:     from,
		To:       to,
	}) //nolint:errcheck
}

func (h *stateHooks) close() {
	h.hooks.Close()
}
