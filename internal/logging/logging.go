// Package logging wires structured logging for the scheduler, executor
// and I/O layers via logrus, grounded on duckdb-tileserver's top-level
// use of github.com/sirupsen/logrus as its sole logging dependency.
package logging

import (
	"context"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

type ctxKey struct{}

// New builds a logrus.Logger with the text formatter and level the
// reference project's main entrypoint configures at startup.
func New(debug bool, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stdout
	}
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if debug {
		l.SetLevel(logrus.DebugLevel)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// WithContext attaches logger to ctx so deeper call layers (task,
// executor, vectorio) can retrieve a request/run-scoped logger without
// threading it through every function signature.
func WithContext(ctx context.Context, logger *logrus.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// FromContext returns the logger attached to ctx, or a disabled logger
// (level Panic, discarding output) if none was attached — callers never
// need a nil check.
func FromContext(ctx context.Context) *logrus.Entry {
	if l, ok := ctx.Value(ctxKey{}).(*logrus.Entry); ok {
		return l
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return logrus.NewEntry(discard)
}

// ForTask returns a child logger tagged with taskID, the pattern every
// TileTask log line in the scheduler uses.
func ForTask(logger *logrus.Entry, taskID string) *logrus.Entry {
	return logger.WithField("task_id", taskID)
}
