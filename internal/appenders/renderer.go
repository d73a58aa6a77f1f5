// Package appenders provides reference Appender implementations: a
// console sink, an in-memory sink for tests, and a batching file sink
// with per-batch integrity checksums.
package appenders

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/emberlog/pipeline/internal/logpipe"
)

// LayoutRenderer formats a LogRecord using a layout template
// transformed by logpipe.TransformLayout into a positional, fixed
// width format string. It is the default Renderer every reference
// appender in this package uses when none is supplied.
type LayoutRenderer struct {
	format string
	// fields maps each positional index of format to its field's
	// identity index; nil when the two coincide (named-index mode).
	fields []int
}

// NewLayoutRenderer builds a renderer from a named-placeholder layout
// string, transforming it once at construction time.
func NewLayoutRenderer(layout string, useZeroBasedIncrementalIndexes bool) *LayoutRenderer {
	r := &LayoutRenderer{format: logpipe.TransformLayout(layout, useZeroBasedIncrementalIndexes)}
	if useZeroBasedIncrementalIndexes && r.format != layout {
		// The named-mode transform lists the same placeholders in the same
		// order, each carrying its identity index.
		for _, m := range positionalToken.FindAllStringSubmatch(logpipe.TransformLayout(layout, false), -1) {
			idx, _ := strconv.Atoi(m[1])
			r.fields = append(r.fields, idx)
		}
	}
	return r
}

// DefaultLayout is the stock named-placeholder layout used when no
// custom layout is configured.
const DefaultLayout = "{timestamp} [TID {threadid}][{loglevel}] {message} [{tag}]"

// NewDefaultRenderer builds a LayoutRenderer using DefaultLayout under
// named-index mode.
func NewDefaultRenderer() *LayoutRenderer {
	return NewLayoutRenderer(DefaultLayout, false)
}

func (r *LayoutRenderer) Setup() error    { return nil }
func (r *LayoutRenderer) Teardown() error { return nil }

// positionalToken matches one transformed placeholder, e.g. "%1:8s" or
// "%0:s", capturing its argument index and width.
var positionalToken = regexp.MustCompile(`%(\d+):(-?\d*)s`)

// Render applies the transformed layout to record's fields, addressed
// by fixed identity index: 0=timestamp, 1=threadid, 2=loglevel,
// 3=message, 4=tag. Under incremental-index mode each positional index
// is first mapped back to the identity index of the field it stands for.
func (r *LayoutRenderer) Render(record logpipe.LogRecord) (string, error) {
	values := [5]string{
		record.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		strconv.FormatInt(record.ThreadID, 10),
		record.LevelAsString(),
		record.Message,
		record.Tag,
	}

	return positionalToken.ReplaceAllStringFunc(r.format, func(match string) string {
		sub := positionalToken.FindStringSubmatch(match)
		idx, err := strconv.Atoi(sub[1])
		if err == nil && r.fields != nil {
			if idx >= len(r.fields) {
				return match
			}
			idx = r.fields[idx]
		}
		if err != nil || idx >= len(values) {
			return match
		}
		return fmt.Sprintf("%"+sub[2]+"s", values[idx])
	}), nil
}
