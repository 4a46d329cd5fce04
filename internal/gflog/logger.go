// Package gflog wraps log/slog behind a functional-option constructor.
// Used throughout the runtime for step/job lifecycle events, the same
// events that feed the Notifier.
package gflog

import (
	"io"
	"log/slog"
	"os"
)

// Logger is GeneFlow's ambient logger: a thin alias over *slog.Logger so
// call sites never depend on gflog's construction details.
type Logger = slog.Logger

// Option configures New.
type Option func(*options)

type options struct {
	debug  bool
	format string
	quiet  bool
	writer io.Writer
}

// WithDebug lowers the minimum level to slog.LevelDebug.
func WithDebug() Option {
	return func(o *options) { o.debug = true }
}

// WithFormat selects "json" or "text" (default "text").
func WithFormat(format string) Option {
	return func(o *options) { o.format = format }
}

// WithQuiet discards everything below slog.LevelError.
func WithQuiet() Option {
	return func(o *options) { o.quiet = true }
}

// WithWriter directs output at w instead of os.Stderr.
func WithWriter(w io.Writer) Option {
	return func(o *options) { o.writer = w }
}

// New builds a *slog.Logger from the given options.
func New(opts ...Option) *Logger {
	o := &options{format: "text", writer: os.Stderr}
	for _, opt := range opts {
		opt(o)
	}

	level := slog.LevelInfo
	switch {
	case o.quiet:
		level = slog.LevelError
	case o.debug:
		level = slog.LevelDebug
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if o.format == "json" {
		handler = slog.NewJSONHandler(o.writer, handlerOpts)
	} else {
		handler = slog.NewTextHandler(o.writer, handlerOpts)
	}
	return slog.New(handler)
}
