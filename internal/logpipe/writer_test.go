package logpipe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildLogWriter_RejectsMismatchedLengths(t *testing.T) {
	_, err := BuildLogWriter([]Appender{&scriptedAppender{name: "a"}}, nil)
	assert.ErrorIs(t, err, ConfigurationError)
}

func TestBuildLogWriter_RejectsDuplicateAppenderNames(t *testing.T) {
	appenders := []Appender{
		&scriptedAppender{name: "dup"},
		&scriptedAppender{name: "dup"},
	}
	levels := []Level{Debug, Debug}

	_, err := BuildLogWriter(appenders, levels)
	assert.ErrorIs(t, err, ConfigurationError)
}

func TestLogWriter_LogDeliversToAppenders(t *testing.T) {
	appender := &scriptedAppender{name: "a"}
	w, err := BuildLogWriter([]Appender{appender}, []Level{Debug})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Log(Info, "hello", "greeting"))

	require.Eventually(t, func() bool {
		return appender.writeCalls.Load() >= 1
	}, time.Second, time.Millisecond)
}

func TestLogWriter_DisableSuppressesLog(t *testing.T) {
	appender := &scriptedAppender{name: "a"}
	w, err := BuildLogWriter([]Appender{appender}, []Level{Debug})
	require.NoError(t, err)
	defer w.Close()

	w.Disable()
	require.NoError(t, w.Log(Info, "should be dropped", ""))

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), appender.writeCalls.Load())

	w.Enable()
	require.NoError(t, w.Log(Info, "should arrive", ""))
	require.Eventually(t, func() bool {
		return appender.writeCalls.Load() >= 1
	}, time.Second, time.Millisecond)
}

func TestLogWriter_AddAndDelAppender(t *testing.T) {
	w, err := BuildLogWriter(nil, nil)
	require.NoError(t, err)
	defer w.Close()

	appender := &scriptedAppender{name: "late"}
	require.NoError(t, w.AddAppender(appender, Debug))
	assert.Equal(t, 1, w.AppendersCount())
	assert.Equal(t, []string{"late"}, w.AppenderClassNames())

	assert.True(t, w.DelAppender("late"))
	assert.Equal(t, 0, w.AppendersCount())
}

func TestLogWriter_AddAppenderRejectsDuplicate(t *testing.T) {
	w, err := BuildLogWriter(nil, nil)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.AddAppender(&scriptedAppender{name: "a"}, Debug))
	assert.Error(t, w.AddAppender(&scriptedAppender{name: "a"}, Debug))
}

func TestLogWriter_CloseIsIdempotent(t *testing.T) {
	w, err := BuildLogWriter(nil, nil)
	require.NoError(t, err)

	assert.NotPanics(t, func() {
		w.Close()
		w.Close()
	})
}

func TestLogWriter_SnapshotAndMainQueueDepth(t *testing.T) {
	appender := &scriptedAppender{name: "a"}
	w, err := BuildLogWriter([]Appender{appender}, []Level{Debug})
	require.NoError(t, err)
	defer w.Close()

	snap := w.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "a", snap[0].Name)
	assert.GreaterOrEqual(t, w.MainQueueDepth(), 0)
}

func TestLogWriter_OnAppenderStateChange(t *testing.T) {
	appender := &scriptedAppender{name: "a"}
	w, err := BuildLogWriter([]Appender{appender}, []Level{Debug})
	require.NoError(t, err)
	defer w.Close()

	events := make(chan StateChangeEvent, 8)
	require.NoError(t, w.OnAppenderStateChange(func(e StateChangeEvent) {
		events <- e
	}))

	select {
	case e := <-events:
		assert.Equal(t, "a", e.Appender)
	case <-time.After(time.Second):
		t.Fatal("expected at least one state change event")
	}
}

func TestBuildLogWriter_MinLevelIsMinimumOfAppenderLevels(t *testing.T) {
	appenders := []Appender{
		&scriptedAppender{name: "a"},
		&scriptedAppender{name: "b"},
		&scriptedAppender{name: "c"},
	}
	levels := []Level{Warning, Debug, Error}

	w, err := BuildLogWriter(appenders, levels)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, Debug, w.MinLevel())
}

func TestBuildLogWriter_MinLevelDefaultsToDebugWithNoAppenders(t *testing.T) {
	w, err := BuildLogWriter(nil, nil)
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, Debug, w.MinLevel())
}

func TestLogWriter_MinLevelRecomputesOnAddAndDelAppender(t *testing.T) {
	w, err := BuildLogWriter([]Appender{&scriptedAppender{name: "a"}}, []Level{Warning})
	require.NoError(t, err)
	defer w.Close()
	assert.Equal(t, Warning, w.MinLevel())

	require.NoError(t, w.AddAppender(&scriptedAppender{name: "b"}, Debug))
	assert.Equal(t, Debug, w.MinLevel())

	assert.True(t, w.DelAppender("b"))
	assert.Equal(t, Warning, w.MinLevel())
}

func TestLogWriter_LogRejectsRecordsBelowMinLevel(t *testing.T) {
	appender := &scriptedAppender{name: "a"}
	w, err := BuildLogWriter([]Appender{appender}, []Level{Warning})
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Log(Info, "below min_level", ""))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), appender.writeCalls.Load())

	require.NoError(t, w.Log(Error, "at or above min_level", ""))
	require.Eventually(t, func() bool {
		return appender.writeCalls.Load() >= 1
	}, time.Second, time.Millisecond)
}

func TestBuildLogWriter_WithMainQueueSizeRebuildsDispatcher(t *testing.T) {
	w, err := BuildLogWriter(nil, nil, WithMainQueueSize(4), WithAppenderQueueSize(4))
	require.NoError(t, err)
	defer w.Close()

	assert.Equal(t, 4, w.queueSize)
	assert.Equal(t, 4, w.appenderQueueSz)
	assert.Equal(t, 4, w.dispatcher.mainQueue.capacity)
}
