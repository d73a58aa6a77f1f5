package logpipe

import (
	"regexp"
	"strconv"
	"strings"
)

// fieldWidth is each named field's fixed output width, keyed by field
// identity: "" means unpadded, a numeric string (optionally signed for
// left-justification) is passed straight through to the %s verb's
// width.
var fieldWidth = map[string]string{
	"timestamp": "",
	"threadid":  "8",
	"loglevel":  "-7",
	"message":   "",
	"tag":       "",
}

// fieldIdentityIndex is the fixed positional index assigned to each
// field under named-index mode, independent of where it appears in
// the layout string.
var fieldIdentityIndex = map[string]int{
	"timestamp": 0,
	"threadid":  1,
	"loglevel":  2,
	"message":   3,
	"tag":       4,
}

var layoutPlaceholder = regexp.MustCompile(`\{(timestamp|threadid|loglevel|message|tag)\}`)

// TransformLayout rewrites a layout string using named placeholders
// ({timestamp} {threadid} {loglevel} {message} {tag}) into a
// positional format string with each field's fixed width applied.
//
// When useZeroBasedIncrementalIndexes is false, each placeholder is
// assigned its field's fixed identity index (timestamp=0, threadid=1,
// loglevel=2, message=3, tag=4) regardless of where it appears in the
// input. When true, placeholders are numbered 0,1,2,... in the order
// they appear in the input instead.
//
// If layout already contains a %s or %d verb, it is assumed to be
// already transformed and is returned unchanged — this function is
// idempotent under repeated application.
func TransformLayout(layout string, useZeroBasedIncrementalIndexes bool) string {
	if strings.Contains(layout, "%s") || strings.Contains(layout, "%d") {
		return layout
	}

	nextIncremental := 0
	return layoutPlaceholder.ReplaceAllStringFunc(layout, func(match string) string {
		field := match[1 : len(match)-1]

		var index int
		if useZeroBasedIncrementalIndexes {
			index = nextIncremental
			nextIncremental++
		} else {
			index = fieldIdentityIndex[field]
		}

		width := fieldWidth[field]
		return "%" + strconv.Itoa(index) + ":" + width + "s"
	})
}
