// Package lumberzap routes lumber events to a zap.Logger.
package lumberzap

import (
	"context"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nilpntr/lumber/lumbertype"
)

// TagKey is the zap field key used for event tags.
const TagKey = "tag"

// Bridge wraps a zap.Logger to implement lumbertype.Bridge.
type Bridge struct {
	logger *zap.Logger

	mu   sync.Mutex
	tags map[string]zap.Field
}

var _ lumbertype.Bridge = (*Bridge)(nil)

// New creates a new Bridge with the given configuration.
func New(config *Config) (*Bridge, error) {
	if config == nil {
		config = DefaultConfig()
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = zap.NewAtomicLevelAt(zapLevelFor(config.Level))
	zapConfig.Sampling = nil

	if !config.Structured {
		zapConfig.Encoding = "console"
		zapConfig.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if !config.IncludeTimestamp {
		zapConfig.EncoderConfig.TimeKey = ""
	} else if config.TimeFormat != "" {
		zapConfig.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(config.TimeFormat)
	} else {
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	if config.IncludeCaller {
		zapConfig.EncoderConfig.CallerKey = "caller"
		zapConfig.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	} else {
		zapConfig.EncoderConfig.CallerKey = ""
	}
	zapConfig.EncoderConfig.StacktraceKey = ""

	if config.Output == nil {
		logger, err := zapConfig.Build()
		if err != nil {
			return nil, err
		}
		return NewFromLogger(logger), nil
	}

	var encoder zapcore.Encoder
	if config.Structured {
		encoder = zapcore.NewJSONEncoder(zapConfig.EncoderConfig)
	} else {
		encoder = zapcore.NewConsoleEncoder(zapConfig.EncoderConfig)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(config.Output), zapConfig.Level)

	var opts []zap.Option
	if config.IncludeCaller {
		opts = append(opts, zap.AddCaller())
	}
	return NewFromLogger(zap.New(core, opts...)), nil
}

// NewDevelopment creates a new development-oriented Bridge writing to stderr.
func NewDevelopment() (*Bridge, error) {
	return New(&Config{
		Level:            lumbertype.LevelTrace,
		Structured:       false,
		IncludeTimestamp: true,
		IncludeCaller:    false,
		Output:           os.Stderr,
	})
}

// NewFromLogger wraps an existing zap logger.
func NewFromLogger(logger *zap.Logger) *Bridge {
	return &Bridge{
		logger: logger,
		tags:   make(map[string]zap.Field),
	}
}

// Factory returns a lumbertype.BridgeFactory producing one named child
// bridge per logger name. The children share the underlying core.
func (b *Bridge) Factory() lumbertype.BridgeFactory {
	return func(name string) lumbertype.Bridge {
		return NewFromLogger(b.logger.Named(name))
	}
}

// Logger returns the wrapped zap logger.
func (b *Bridge) Logger() *zap.Logger {
	return b.logger
}

// Enabled reports whether the zap core accepts the mapped level. Tags never
// affect the decision.
func (b *Bridge) Enabled(level lumbertype.Level, tag string) bool {
	if level >= lumbertype.LevelOff {
		return false
	}
	return b.logger.Core().Enabled(zapLevelFor(level))
}

// Log writes the event.
//
// Levels are mapped as follows:
//
//   - FATAL -> error
//   - ERROR -> error
//   - WARN  -> warn
//   - INFO  -> info
//   - DEBUG -> debug
//   - TRACE -> debug
//
// FATAL is never mapped to zap's fatal level, which would exit the process.
func (b *Bridge) Log(_ context.Context, event lumbertype.Event) {
	if event.Level >= lumbertype.LevelOff {
		return
	}
	ce := b.logger.Check(zapLevelFor(event.Level), event.Message)
	if ce == nil {
		return
	}

	fields := make([]zap.Field, 0, len(event.Fields)+3)
	fields = append(fields, b.convertFields(event.Fields...)...)
	if event.Tag != "" {
		fields = append(fields, b.tagField(event.Tag))
	}
	if event.Err != nil {
		fields = append(fields, zap.Error(event.Err))
	}
	if len(event.Context) > 0 {
		fields = append(fields, zap.Object("mdc", stringMap(event.Context)))
	}
	if !event.Time.IsZero() {
		ce.Time = event.Time
	}
	ce.Write(fields...)
}

// Sync flushes any buffered log entries.
func (b *Bridge) Sync() error {
	return b.logger.Sync()
}

// tagField converts a tag into a zap field and caches it for later use by
// this bridge.
func (b *Bridge) tagField(tag string) zap.Field {
	b.mu.Lock()
	defer b.mu.Unlock()
	if f, ok := b.tags[tag]; ok {
		return f
	}
	f := zap.String(TagKey, tag)
	b.tags[tag] = f
	return f
}

// convertFields converts lumbertype.Field slice to zap.Field slice.
func (b *Bridge) convertFields(fields ...lumbertype.Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, field := range fields {
		zapFields[i] = convertField(field)
	}
	return zapFields
}

// convertField converts a single lumbertype.Field to zap.Field.
func convertField(field lumbertype.Field) zap.Field {
	switch v := field.Value.(type) {
	case string:
		return zap.String(field.Key, v)
	case int:
		return zap.Int(field.Key, v)
	case int64:
		return zap.Int64(field.Key, v)
	case float64:
		return zap.Float64(field.Key, v)
	case bool:
		return zap.Bool(field.Key, v)
	case error:
		return zap.NamedError(field.Key, v)
	case []byte:
		return zap.ByteString(field.Key, v)
	default:
		return zap.Any(field.Key, v)
	}
}

func zapLevelFor(level lumbertype.Level) zapcore.Level {
	switch level {
	case lumbertype.LevelTrace, lumbertype.LevelDebug:
		return zapcore.DebugLevel
	case lumbertype.LevelInfo:
		return zapcore.InfoLevel
	case lumbertype.LevelWarn:
		return zapcore.WarnLevel
	case lumbertype.LevelError, lumbertype.LevelFatal:
		return zapcore.ErrorLevel
	default:
		// LevelOff: above anything the bridge ever writes.
		return zapcore.FatalLevel + 1
	}
}

type stringMap map[string]string

func (m stringMap) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for k, v := range m {
		enc.AddString(k, v)
	}
	return nil
}
