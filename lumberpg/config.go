package lumberpg

import (
	"time"

	"go.uber.org/zap"

	"github.com/nilpntr/lumber/lumbertype"
)

// Config contains configuration for a Sink.
type Config struct {
	// Level is the minimum level written to the table.
	// The zero value records every level.
	Level lumbertype.Level

	// BatchSize is the number of events inserted per statement.
	// Defaults to 100 if not specified.
	BatchSize int

	// BufferSize is the capacity of the in-memory queue. Events logged while
	// the queue is full are dropped and counted.
	// Defaults to 1024, or BatchSize when that is larger.
	BufferSize int

	// FlushInterval is the longest an event waits in the queue.
	// Defaults to 1s if not specified.
	FlushInterval time.Duration

	// DisableNotify turns off the NOTIFY sent after each batch.
	DisableNotify bool

	// Logger receives the sink's own diagnostics.
	// If nil, a no-op logger will be used.
	Logger *zap.Logger
}

// SetDefaults sets default values for unspecified configuration options.
func (c *Config) SetDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.BufferSize == 0 {
		c.BufferSize = max(1024, c.BatchSize)
	}
	if c.FlushInterval == 0 {
		c.FlushInterval = time.Second
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Level < lumbertype.LevelTrace || c.Level > lumbertype.LevelOff {
		return &lumbertype.ValidationError{Field: "Level", Message: "unknown level"}
	}
	if c.BatchSize < 0 {
		return &lumbertype.ValidationError{Field: "BatchSize", Message: "must be greater than 0"}
	}
	if c.BufferSize < c.BatchSize {
		return &lumbertype.ValidationError{Field: "BufferSize", Message: "must be at least BatchSize"}
	}
	if c.FlushInterval < 0 {
		return &lumbertype.ValidationError{Field: "FlushInterval", Message: "must be greater than 0"}
	}
	return nil
}
