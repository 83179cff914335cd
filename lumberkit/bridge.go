// Package lumberkit routes lumber events to a go-kit logger, writing logfmt
// by default.
package lumberkit

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/nilpntr/lumber/lumbertype"
)

// Bridge writes events through a go-kit logger.
type Bridge struct {
	logger  kitlog.Logger
	level   lumbertype.Level
	onError func(error)
}

var _ lumbertype.Bridge = (*Bridge)(nil)

// Option configures a Bridge.
type Option func(*Bridge)

// WithErrorHandler sets the function receiving write failures.
func WithErrorHandler(fn func(error)) Option {
	return func(b *Bridge) { b.onError = fn }
}

// NewLogfmt creates a bridge writing logfmt lines to w. Events below min
// are discarded.
func NewLogfmt(w io.Writer, min lumbertype.Level, opts ...Option) *Bridge {
	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(w))
	return New(logger, min, opts...)
}

// New wraps an existing go-kit logger.
func New(logger kitlog.Logger, min lumbertype.Level, opts ...Option) *Bridge {
	b := &Bridge{
		logger:  logger,
		level:   min,
		onError: func(error) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Factory returns a BridgeFactory whose bridges add a logger=<name> pair.
func (b *Bridge) Factory() lumbertype.BridgeFactory {
	return func(name string) lumbertype.Bridge {
		return &Bridge{
			logger:  kitlog.With(b.logger, "logger", name),
			level:   b.level,
			onError: b.onError,
		}
	}
}

// Enabled compares level with the configured minimum.
func (b *Bridge) Enabled(lvl lumbertype.Level, _ string) bool {
	return lvl < lumbertype.LevelOff && lvl >= b.level
}

// Log writes one logfmt line. FATAL is written as error and TRACE as debug.
func (b *Bridge) Log(_ context.Context, event lumbertype.Event) {
	if !b.Enabled(event.Level, event.Tag) {
		return
	}

	ts := event.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	keyvals := make([]interface{}, 0, 8+2*(len(event.Fields)+len(event.Context)))
	keyvals = append(keyvals, "ts", ts.UTC().Format(time.RFC3339Nano), "msg", event.Message)
	if event.Tag != "" {
		keyvals = append(keyvals, "tag", event.Tag)
	}
	if event.Err != nil {
		keyvals = append(keyvals, "err", event.Err.Error())
	}
	for _, f := range event.Fields {
		keyvals = append(keyvals, f.Key, logfmtValue(f.Value))
	}
	keys := make([]string, 0, len(event.Context))
	for k := range event.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyvals = append(keyvals, "mdc."+k, event.Context[k])
	}

	if err := leveled(b.logger, event.Level).Log(keyvals...); err != nil {
		b.onError(&lumbertype.BridgeError{Bridge: "logfmt", Err: err})
	}
}

func leveled(logger kitlog.Logger, lvl lumbertype.Level) kitlog.Logger {
	switch lvl {
	case lumbertype.LevelTrace, lumbertype.LevelDebug:
		return level.Debug(logger)
	case lumbertype.LevelInfo:
		return level.Info(logger)
	case lumbertype.LevelWarn:
		return level.Warn(logger)
	default:
		return level.Error(logger)
	}
}

// logfmtValue keeps the types the logfmt encoder handles natively and
// stringifies the rest.
func logfmtValue(v interface{}) interface{} {
	switch v := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64,
		time.Duration, time.Time:
		return v
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
