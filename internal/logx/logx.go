// Package logx stores the logger used inside the stereo module.
//
// Internal packages log through L. The root package exposes Set as
// stereo.SetLogger, which they cannot import themselves.
package logx

import (
	"log/slog"
	"sync/atomic"
)

var (
	silent  = slog.New(slog.DiscardHandler)
	current atomic.Pointer[slog.Logger]
)

// Set installs l. Passing nil turns logging off again.
func Set(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// L returns the installed logger, or a discarding one if none was set.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	return silent
}
