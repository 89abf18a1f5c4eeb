package isp

import (
	"fmt"
	"io"
)

// Logger is an optional logging interface that can be provided to the dispatcher.
// This allows integration with any logging framework.
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg string, keysAndValues ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg string, keysAndValues ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg string, keysAndValues ...interface{})
}

// Indicator is the cosmetic status display. Implementations must return
// quickly and must not fail; the dispatcher ignores them otherwise.
type Indicator interface {
	// Activity is called once per committed page or EEPROM chunk.
	// step increments on every call and wraps at 256.
	Activity(step uint8)

	// Errors is called whenever the session error counter changes.
	Errors(count uint32)
}

var twiddle = [4]byte{'-', '\\', '|', '/'}

// TextIndicator writes a spinning busy character and an error marker to w.
type TextIndicator struct {
	w io.Writer
}

// NewTextIndicator returns an Indicator writing to w.
func NewTextIndicator(w io.Writer) *TextIndicator {
	return &TextIndicator{w: w}
}

// Activity implements Indicator.
func (t *TextIndicator) Activity(step uint8) {
	_, _ = fmt.Fprintf(t.w, "%c\b", twiddle[step&0x3])
}

// Errors implements Indicator.
func (t *TextIndicator) Errors(count uint32) {
	if count == 0 {
		_, _ = fmt.Fprint(t.w, "\r     \r")
		return
	}
	mark := ' '
	if count&0x01 == 0 {
		mark = '!'
	}
	_, _ = fmt.Fprintf(t.w, "\rError%c\r", mark)
}
