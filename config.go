package lumber

import (
	"fmt"

	"github.com/nilpntr/lumber/lumbertype"
)

// Re-export types from lumbertype for convenience
type Level = lumbertype.Level
type Field = lumbertype.Field
type Event = lumbertype.Event
type Bridge = lumbertype.Bridge
type BridgeFactory = lumbertype.BridgeFactory
type MDCAdapter = lumbertype.MDCAdapter

const (
	LevelTrace = lumbertype.LevelTrace
	LevelDebug = lumbertype.LevelDebug
	LevelInfo  = lumbertype.LevelInfo
	LevelWarn  = lumbertype.LevelWarn
	LevelError = lumbertype.LevelError
	LevelFatal = lumbertype.LevelFatal
	LevelOff   = lumbertype.LevelOff
)

// ParseLevel parses a level name.
var ParseLevel = lumbertype.ParseLevel

// Config contains the facade configuration.
type Config struct {
	// Level is the minimum level passed on to bridges.
	// Valid values: "trace", "debug", "info", "warn", "error", "fatal", "off".
	// Defaults to "info" if not specified.
	Level string

	// Bridge builds the bridge for each logger name.
	// Takes precedence over BridgeName.
	Bridge BridgeFactory `json:"-"` // Function, not serializable

	// BridgeName selects a bridge registered with RegisterBridge.
	// Only used when Bridge is nil. Defaults to "nop".
	BridgeName string

	// Hooks is a list of hooks to run for every event.
	// Hooks are executed in the order they appear in this slice.
	Hooks []Hook

	// MDCAdapter overrides the statically bound diagnostic context.
	// If nil, the adapter obtained from lumberbind is used.
	MDCAdapter MDCAdapter `json:"-"`

	// OnError receives hook failures. Defaults to discarding them.
	OnError func(error) `json:"-"`
}

// SetDefaults sets default values for unspecified config fields.
func (c *Config) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}

	if c.Bridge == nil && c.BridgeName == "" {
		c.BridgeName = NopBridgeName
	}

	if c.OnError == nil {
		c.OnError = func(error) {}
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, err := lumbertype.ParseLevel(c.Level); err != nil {
		return &ValidationError{
			Field:   "Level",
			Message: "must be one of: trace, debug, info, warn, error, fatal, off",
		}
	}

	if c.Bridge == nil {
		if _, err := LookupBridge(c.BridgeName); err != nil {
			return fmt.Errorf("bridge %q: %w", c.BridgeName, err)
		}
	}

	return nil
}
