// Package logging hands out prefixed package loggers that discard output until
// the CLI enables them.
package logging

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	mu      sync.Mutex
	loggers []*log.Logger
	output  io.Writer = io.Discard
	level             = log.InfoLevel
)

// New returns a logger with the given prefix. It writes nowhere until SetOutput is called.
func New(prefix string) *log.Logger {
	mu.Lock()
	defer mu.Unlock()

	l := log.NewWithOptions(output, log.Options{
		Prefix:          prefix,
		ReportTimestamp: true,
		Level:           level,
	})
	loggers = append(loggers, l)
	return l
}

// SetOutput redirects every logger created by New, including ones created later.
func SetOutput(w io.Writer, verbose bool) {
	mu.Lock()
	defer mu.Unlock()

	output = w
	level = log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	for _, l := range loggers {
		l.SetOutput(output)
		l.SetLevel(level)
	}
}
