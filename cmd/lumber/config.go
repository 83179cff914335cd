package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/nilpntr/lumber"
)

// FileConfig is the on-disk configuration of the lumber CLI.
type FileConfig struct {
	Log      LogConfig      `toml:"log"`
	Postgres PostgresConfig `toml:"postgres"`
	Seal     SealConfig     `toml:"seal"`
}

// LogConfig selects the bridge events are written to.
type LogConfig struct {
	Level    string `toml:"level"`
	Bridge   string `toml:"bridge"`   // "nop", "zap", "logfmt" or "postgres"
	Encoding string `toml:"encoding"` // "json" or "console", zap only
	Caller   bool   `toml:"caller"`
}

// PostgresConfig configures the postgres bridge, migrations and tail.
type PostgresConfig struct {
	URL           string `toml:"url"`
	Schema        string `toml:"schema,omitempty"`
	BatchSize     int    `toml:"batch_size"`
	BufferSize    int    `toml:"buffer_size,omitempty"` // 0 picks a size that fits batch_size
	FlushInterval string `toml:"flush_interval"` // Go duration, e.g. "500ms"
}

// SealConfig lists fields sealed before they reach a bridge.
type SealConfig struct {
	Key    string   `toml:"key"` // 64 hex characters
	Fields []string `toml:"fields"`
}

// DefaultFileConfig returns the configuration used when no file exists.
func DefaultFileConfig() *FileConfig {
	return &FileConfig{
		Log: LogConfig{
			Level:    "info",
			Bridge:   "zap",
			Encoding: "console",
		},
		Postgres: PostgresConfig{
			BatchSize:     100,
			FlushInterval: "1s",
		},
	}
}

// ReadConfig decodes a FileConfig from r on top of the defaults.
func ReadConfig(r io.Reader) (*FileConfig, error) {
	cfg := DefaultFileConfig()
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// ReadConfigFile reads a FileConfig from path. A missing file yields the
// defaults when allowMissing is set.
func ReadConfigFile(path string, allowMissing bool) (*FileConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return DefaultFileConfig(), nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	cfg, err := ReadConfig(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *FileConfig) Validate() error {
	if _, err := lumber.ParseLevel(c.Log.Level); err != nil {
		return &lumber.ValidationError{Field: "log.level", Message: err.Error()}
	}

	switch c.Log.Bridge {
	case lumber.NopBridgeName, "zap", "logfmt":
	case "postgres":
		if c.Postgres.URL == "" {
			return &lumber.ValidationError{Field: "postgres.url", Message: "required by the postgres bridge"}
		}
	default:
		return &lumber.ValidationError{Field: "log.bridge", Message: fmt.Sprintf("unknown bridge %q", c.Log.Bridge)}
	}

	switch c.Log.Encoding {
	case "json", "console":
	default:
		return &lumber.ValidationError{Field: "log.encoding", Message: fmt.Sprintf("unknown encoding %q", c.Log.Encoding)}
	}

	if c.Postgres.BatchSize < 0 {
		return &lumber.ValidationError{Field: "postgres.batch_size", Message: "must be greater than 0"}
	}
	if c.Postgres.BufferSize < 0 {
		return &lumber.ValidationError{Field: "postgres.buffer_size", Message: "must be greater than 0"}
	}
	if c.Postgres.BufferSize > 0 && c.Postgres.BufferSize < c.Postgres.BatchSize {
		return &lumber.ValidationError{Field: "postgres.buffer_size", Message: "must be at least batch_size"}
	}
	if _, err := c.flushInterval(); err != nil {
		return &lumber.ValidationError{Field: "postgres.flush_interval", Message: err.Error()}
	}

	if c.Seal.Key != "" {
		if _, err := lumber.ParseSealKey(c.Seal.Key); err != nil {
			return &lumber.ValidationError{Field: "seal.key", Message: err.Error()}
		}
	} else if len(c.Seal.Fields) > 0 {
		return &lumber.ValidationError{Field: "seal.key", Message: "required when seal.fields is set"}
	}
	return nil
}

func (c *FileConfig) flushInterval() (time.Duration, error) {
	if c.Postgres.FlushInterval == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Postgres.FlushInterval)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("must not be negative")
	}
	return d, nil
}
