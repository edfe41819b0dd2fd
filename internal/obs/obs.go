// Package obs provides the minimal leveled logging every component uses for
// the debug/warn-level call-outs the product asks for (4.A unreadable files,
// 4.D unknown containers, 4.H write-through failures, ...). It deliberately
// stops short of a tracing/metrics stack: exporting telemetry is an external
// concern.
package obs

import (
	"fmt"
	"os"
	"sync/atomic"
)

// Level controls which calls actually print.
type Level int32

const (
	LevelError Level = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var current atomic.Int32

func init() {
	current.Store(int32(LevelInfo))
}

// SetLevel changes the global verbosity. Safe to call concurrently.
func SetLevel(l Level) { current.Store(int32(l)) }

func enabled(l Level) bool { return l <= Level(current.Load()) }

func emit(prefix string, format string, args ...any) {
	fmt.Fprintf(os.Stderr, prefix+" "+format+"\n", args...)
}

func Debugf(format string, args ...any) {
	if enabled(LevelDebug) {
		emit("[debug]", format, args...)
	}
}

func Warnf(format string, args ...any) {
	if enabled(LevelWarn) {
		emit("[warn]", format, args...)
	}
}

func Errorf(format string, args ...any) {
	if enabled(LevelError) {
		emit("[error]", format, args...)
	}
}

func Infof(format string, args ...any) {
	if enabled(LevelInfo) {
		emit("[info]", format, args...)
	}
}
