package termutil

import (
	"io"
	"time"

	"pkt.systems/pslog"
)

const (
	// DefaultChunkSize bounds a single read from the pty
	DefaultChunkSize = 1 << 20
	// DefaultTERM is exported to the child when no other value is set
	DefaultTERM = "xterm-256color"
	// DefaultCompletionTimeout bounds the wait for a completion echo
	DefaultCompletionTimeout = 2 * time.Second

	defaultRows = 24
	defaultCols = 80
)

// Option configures a Session
type Option func(s *Session)

// WithLogger sets the session logger
func WithLogger(log pslog.Logger) Option {
	return func(s *Session) {
		if log != nil {
			s.log = log
		}
	}
}

// WithChunkSize bounds each read from the pty
func WithChunkSize(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.chunkSize = n
		}
	}
}

// WithTERM sets the TERM variable of the child
func WithTERM(term string) Option {
	return func(s *Session) {
		if term != "" {
			s.term = term
		}
	}
}

// WithSize sets the initial window size of the pty
func WithSize(rows, cols uint16) Option {
	return func(s *Session) {
		if rows > 0 && cols > 0 {
			s.rows, s.cols = rows, cols
		}
	}
}

// CompleterOption configures a Completer
type CompleterOption func(c *Completer)

// WithCompletionTimeout bounds the wait for the shell's completion echo
func WithCompletionTimeout(d time.Duration) CompleterOption {
	return func(c *Completer) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithCompleterLogger sets the completer logger
func WithCompleterLogger(log pslog.Logger) CompleterOption {
	return func(c *Completer) {
		if log != nil {
			c.log = log
		}
	}
}

func discardLogger() pslog.Logger {
	return pslog.NewWithOptions(io.Discard, pslog.Options{Mode: pslog.ModeStructured, NoColor: true})
}
