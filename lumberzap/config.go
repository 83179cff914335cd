package lumberzap

import (
	"io"

	"github.com/nilpntr/lumber/lumbertype"
)

// Config contains configuration for zap-backed bridges.
type Config struct {
	// Level is the minimum log level to output.
	Level lumbertype.Level

	// Structured enables JSON output. When false the console encoder is used.
	Structured bool

	// IncludeTimestamp includes timestamps in log output.
	IncludeTimestamp bool

	// IncludeCaller includes caller information in log output.
	IncludeCaller bool

	// TimeFormat is the format to use for timestamps.
	// If empty, zap's ISO8601 encoder is used.
	TimeFormat string

	// Output specifies where to write logs. If nil, os.Stderr is used.
	Output io.Writer
}

// DefaultConfig returns a default bridge configuration.
func DefaultConfig() *Config {
	return &Config{
		Level:            lumbertype.LevelInfo,
		Structured:       true,
		IncludeTimestamp: true,
		IncludeCaller:    false,
	}
}
