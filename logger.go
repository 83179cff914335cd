// Package lumber is a logging facade. Application code logs through named
// loggers; a bridge chosen at configuration time writes the events to a
// concrete backend (zap, go-kit logfmt, Postgres, ...).
package lumber

import (
	"context"
	"time"

	"github.com/nilpntr/lumber/lumberhook"
	"github.com/nilpntr/lumber/lumbertype"
)

// Keys lifted out of the field list into Event.Err and Event.Tag.
const (
	ErrorKey = lumbertype.ErrorKey
	TagKey   = lumbertype.TagKey
)

// Logger is a named logger. The zero value is not usable; call New.
// A Logger is safe for concurrent use.
type Logger struct {
	name   string
	fields []Field
	ctx    context.Context
}

var _ lumbertype.Logger = (*Logger)(nil)

// New returns the logger for name.
func New(name string) *Logger {
	return &Logger{name: name}
}

// Name returns the logger name.
func (l *Logger) Name() string {
	return l.name
}

// F builds a field.
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Err attaches err to the event.
func Err(err error) Field {
	return Field{Key: ErrorKey, Value: err}
}

// Tag attaches a tag (marker) to the event.
func Tag(tag string) Field {
	return Field{Key: TagKey, Value: tag}
}

// Enabled reports whether an event at level carrying tag would be written.
func (l *Logger) Enabled(level Level, tag string) bool {
	rt := current.Load()
	if level < rt.level || level >= LevelOff {
		return false
	}
	return rt.bridge(l.name).Enabled(level, tag)
}

// Log logs msg at level.
func (l *Logger) Log(level Level, msg string, fields ...Field) {
	l.log(level, msg, nil, fields)
}

// LogFn logs the result of fn at level. fn is only called when the level is
// enabled.
func (l *Logger) LogFn(level Level, fn func() string, fields ...Field) {
	l.log(level, "", fn, fields)
}

func (l *Logger) Trace(msg string, fields ...Field) { l.log(LevelTrace, msg, nil, fields) }
func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, nil, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, nil, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, nil, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.log(LevelError, msg, nil, fields) }

// Fatal logs msg at the fatal level. It does not exit the process.
func (l *Logger) Fatal(msg string, fields ...Field) { l.log(LevelFatal, msg, nil, fields) }

func (l *Logger) TraceFn(fn func() string, fields ...Field) { l.log(LevelTrace, "", fn, fields) }
func (l *Logger) DebugFn(fn func() string, fields ...Field) { l.log(LevelDebug, "", fn, fields) }
func (l *Logger) InfoFn(fn func() string, fields ...Field)  { l.log(LevelInfo, "", fn, fields) }
func (l *Logger) WarnFn(fn func() string, fields ...Field)  { l.log(LevelWarn, "", fn, fields) }
func (l *Logger) ErrorFn(fn func() string, fields ...Field) { l.log(LevelError, "", fn, fields) }
func (l *Logger) FatalFn(fn func() string, fields ...Field) { l.log(LevelFatal, "", fn, fields) }

// With returns a logger with the specified fields pre-populated.
func (l *Logger) With(fields ...Field) lumbertype.Logger {
	return l.with(fields...)
}

// WithContext returns a logger that attaches the diagnostic values carried
// by ctx to every event.
func (l *Logger) WithContext(ctx context.Context) lumbertype.Logger {
	child := l.with()
	child.ctx = ctx
	return child
}

func (l *Logger) with(fields ...Field) *Logger {
	merged := make([]Field, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &Logger{name: l.name, fields: merged, ctx: l.ctx}
}

func (l *Logger) log(level Level, msg string, fn func() string, fields []Field) {
	rt := current.Load()
	if level < rt.level || level >= LevelOff {
		return
	}

	all := fields
	if len(l.fields) > 0 {
		all = make([]Field, 0, len(l.fields)+len(fields))
		all = append(all, l.fields...)
		all = append(all, fields...)
	}
	rest, tag, err := splitFields(all)

	bridge := rt.bridge(l.name)
	if !bridge.Enabled(level, tag) {
		return
	}
	if fn != nil {
		msg = fn()
	}

	ctx := l.ctx
	if ctx == nil {
		ctx = context.Background()
	}

	event := Event{
		Logger:  l.name,
		Level:   level,
		Message: msg,
		Err:     err,
		Tag:     tag,
		Fields:  rest,
		Context: rt.contextFor(l.ctx),
		Time:    time.Now(),
	}

	event, hookErr := lumberhook.RunBeforeLogHooks(ctx, rt.hooks, event)
	if hookErr != nil {
		rt.onError(hookErr)
		return
	}
	bridge.Log(ctx, event)
	lumberhook.RunAfterLogHooks(ctx, rt.hooks, event)
}

// splitFields lifts the first error field and the first tag field out of
// fields. The input slice is never modified.
func splitFields(fields []Field) (rest []Field, tag string, err error) {
	var haveErr, haveTag bool
	for _, f := range fields {
		if !haveErr && f.Key == ErrorKey {
			if e, ok := f.Value.(error); ok {
				err, haveErr = e, true
				continue
			}
		}
		if !haveTag && f.Key == TagKey {
			if t, ok := f.Value.(string); ok {
				tag, haveTag = t, true
				continue
			}
		}
		rest = append(rest, f)
	}
	return rest, tag, err
}
