package lumbertype

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Level represents the severity of a log event. Levels are ordered from the
// least to the most severe so a minimum level can be compared directly.
type Level int

const (
	// LevelTrace is the most verbose level.
	LevelTrace Level = iota

	// LevelDebug enables debug and higher level logs.
	LevelDebug

	// LevelInfo enables info and higher level logs.
	LevelInfo

	// LevelWarn enables warning and higher level logs.
	LevelWarn

	// LevelError enables error and fatal logs.
	LevelError

	// LevelFatal enables only fatal logs.
	LevelFatal

	// LevelOff disables all logging.
	LevelOff
)

// String returns the string representation of the log level.
func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelFatal:
		return "fatal"
	case LevelOff:
		return "off"
	default:
		return "unknown"
	}
}

// ParseLevel parses a level name. Matching is case-insensitive and "warning"
// is accepted as an alias for "warn".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace, nil
	case "debug":
		return LevelDebug, nil
	case "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "fatal":
		return LevelFatal, nil
	case "off":
		return LevelOff, nil
	default:
		return LevelInfo, fmt.Errorf("%w: %q", ErrInvalidLevel, s)
	}
}

// Field keys the facade lifts into Event.Err and Event.Tag.
const (
	ErrorKey = "error"
	TagKey   = "tag"
)

// Field represents a structured logging field.
type Field struct {
	Key   string
	Value interface{}
}

// Event is a single log call after the facade has resolved it.
type Event struct {
	// Logger is the name of the logger that produced the event.
	Logger string

	Level   Level
	Message string

	// Err is the error attached to the call, if any.
	Err error

	// Tag is an optional marker used by bridges for routing or filtering.
	Tag string

	Fields []Field

	// Context is a snapshot of the diagnostic context at the time of the call.
	Context map[string]string

	Time time.Time
}

// Logger represents the logging interface exposed to application code.
type Logger interface {
	Trace(msg string, fields ...Field)
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	Fatal(msg string, fields ...Field)
	With(fields ...Field) Logger
	WithContext(ctx context.Context) Logger
}

// Bridge routes events from the facade to a concrete logging backend.
// One bridge is created per logger name.
type Bridge interface {
	// Enabled reports whether events at level with the given tag would be
	// written. The tag is empty when the call carried none.
	Enabled(level Level, tag string) bool

	// Log writes the event. Bridges report their own failures; logging never
	// returns an error to the caller.
	Log(ctx context.Context, event Event)
}

// BridgeFactory creates the bridge for a named logger.
type BridgeFactory func(name string) Bridge

// MDCAdapter is a mapped diagnostic context: a key/value store whose content
// is attached to every event.
type MDCAdapter interface {
	// Put stores value under key.
	Put(key, value string)

	// Get returns the value stored under key and whether it was present.
	Get(key string) (string, bool)

	// Remove deletes key.
	Remove(key string)

	// Clear deletes every key.
	Clear()

	// CopyOfContextMap returns a copy of the current content. Callers may
	// modify the returned map.
	CopyOfContextMap() map[string]string

	// SetContextMap replaces the current content with a copy of m.
	SetContextMap(m map[string]string)
}
