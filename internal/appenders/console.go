package appenders

import (
	"fmt"
	"io"
	"os"

	"github.com/emberlog/pipeline/internal/logpipe"
)

// ConsoleAppender writes rendered records to an io.Writer, stdout by
// default. It acquires no external resource: Setup only sets up its
// renderer and TryRestart always succeeds. A failed render or write is
// still reported, sending its worker into the usual cooldown.
type ConsoleAppender struct {
	name     string
	level    logpipe.Level
	renderer logpipe.Renderer
	out      io.Writer
	errOut   io.Writer
}

// NewConsoleAppender builds a ConsoleAppender writing to os.Stdout,
// except Warning and above which go to os.Stderr, using the default
// layout renderer.
func NewConsoleAppender(name string) *ConsoleAppender {
	return &ConsoleAppender{
		name:     name,
		renderer: NewDefaultRenderer(),
		out:      os.Stdout,
		errOut:   os.Stderr,
	}
}

// WithWriter overrides the destination for records below Warning,
// primarily for tests.
func (c *ConsoleAppender) WithWriter(w io.Writer) *ConsoleAppender {
	c.out = w
	return c
}

// WithErrorWriter overrides the destination for Warning-and-above
// records, primarily for tests.
func (c *ConsoleAppender) WithErrorWriter(w io.Writer) *ConsoleAppender {
	c.errOut = w
	return c
}

// WithRenderer overrides the default layout renderer.
func (c *ConsoleAppender) WithRenderer(r logpipe.Renderer) *ConsoleAppender {
	c.renderer = r
	return c
}

// WithLevel sets the appender's own minimum level, used only when the
// appender is driven outside a LogWriter.
func (c *ConsoleAppender) WithLevel(level logpipe.Level) *ConsoleAppender {
	c.level = level
	return c
}

func (c *ConsoleAppender) Name() string         { return c.name }
func (c *ConsoleAppender) Level() logpipe.Level { return c.level }

func (c *ConsoleAppender) Setup() error {
	return c.renderer.Setup()
}

func (c *ConsoleAppender) Write(record logpipe.LogRecord) error {
	line, err := c.renderer.Render(record)
	if err != nil {
		return err
	}
	dest := c.out
	if record.Level >= logpipe.Warning {
		dest = c.errOut
	}
	_, err = fmt.Fprintln(dest, line)
	return err
}

func (c *ConsoleAppender) TryRestart() bool {
	return true
}

func (c *ConsoleAppender) Teardown() error {
	return c.renderer.Teardown()
}
