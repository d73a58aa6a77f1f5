package diagnostics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlog/pipeline/internal/logpipe"
)

// fakeSnapshotter is a test double for Snapshotter, letting each test
// control exactly what the recorder observes without a real pipeline.
type fakeSnapshotter struct {
	mainDepth int
	appenders []logpipe.AppenderSnapshot
}

func (f *fakeSnapshotter) Snapshot() []logpipe.AppenderSnapshot { return f.appenders }
func (f *fakeSnapshotter) MainQueueDepth() int                  { return f.mainDepth }

func TestRecorder_StartWritesSnapshotFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diagnostics")
	source := &fakeSnapshotter{
		mainDepth: 3,
		appenders: []logpipe.AppenderSnapshot{
			{Name: "console", QueueDepth: 1, State: logpipe.Running},
		},
	}

	r := NewRecorder(source, dir, 10*time.Millisecond, 5)
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Eventually(t, func() bool {
		entries, err := filepath.Glob(filepath.Join(dir, "snapshot-*.json"))
		return err == nil && len(entries) >= 1
	}, time.Second, 5*time.Millisecond)

	entries, err := filepath.Glob(filepath.Join(dir, "snapshot-*.json"))
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	data, err := os.ReadFile(entries[0])
	require.NoError(t, err)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(data, &snap))
	assert.Equal(t, 3, snap.MainQueueDepth)
	require.Len(t, snap.Appenders, 1)
	assert.Equal(t, "console", snap.Appenders[0].Name)
	assert.Equal(t, "Running", snap.Appenders[0].State)
}

func TestRecorder_RotatesBeyondRetentionCount(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diagnostics")
	source := &fakeSnapshotter{}

	r := NewRecorder(source, dir, 5*time.Millisecond, 2)
	require.NoError(t, r.Start())
	defer r.Stop()

	require.Eventually(t, func() bool {
		entries, err := filepath.Glob(filepath.Join(dir, "snapshot-*.json"))
		return err == nil && len(entries) >= 2
	}, time.Second, 5*time.Millisecond)

	// Give a few more ticks to push past retention, then verify
	// the count never exceeds it.
	time.Sleep(50 * time.Millisecond)

	entries, err := filepath.Glob(filepath.Join(dir, "snapshot-*.json"))
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 2)
}

func TestRecorder_StartIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diagnostics")
	r := NewRecorder(&fakeSnapshotter{}, dir, time.Hour, 1)

	require.NoError(t, r.Start())
	require.NoError(t, r.Start())
	r.Stop()
}

func TestRecorder_StopWithoutStartDoesNotPanic(t *testing.T) {
	r := NewRecorder(&fakeSnapshotter{}, t.TempDir(), time.Hour, 1)
	assert.NotPanics(t, func() {
		r.Stop()
	})
}

func TestRecorder_NonPositiveRetentionDefaultsToOne(t *testing.T) {
	r := NewRecorder(&fakeSnapshotter{}, t.TempDir(), time.Hour, 0)
	assert.Equal(t, 1, r.retain)
}

func TestRecorder_NonPositiveIntervalNeverStarts(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diagnostics")
	r := NewRecorder(&fakeSnapshotter{}, dir, 0, 1)

	require.NoError(t, r.Start())
	time.Sleep(20 * time.Millisecond)

	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "a zero interval should never create the diagnostics directory")
}
