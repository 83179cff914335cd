package lumber

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/nilpntr/lumber/lumberbind"
	"github.com/nilpntr/lumber/lumbermdc"
)

// runtime is an immutable snapshot of a Config. Loggers read the current
// snapshot on every call, so Configure takes effect for existing loggers.
type runtime struct {
	level   Level
	factory BridgeFactory
	hooks   []Hook
	mdc     MDCAdapter
	onError func(error)

	// name -> Bridge, built on first use
	bridges sync.Map
}

var current atomic.Pointer[runtime]

// boundMDC queries the static binding once per process.
var boundMDC = sync.OnceValue(func() MDCAdapter {
	return lumberbind.Singleton().Adapter()
})

func init() {
	rt, err := newRuntime(&Config{})
	if err != nil {
		panic(fmt.Sprintf("lumber: default configuration: %v", err))
	}
	current.Store(rt)
}

// Configure validates cfg and installs it for every logger.
// A nil cfg restores the defaults.
func Configure(cfg *Config) error {
	if cfg == nil {
		cfg = &Config{}
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	current.Store(rt)
	return nil
}

// Reset restores the default configuration: no-op bridge, info level, no
// hooks and the statically bound diagnostic context.
func Reset() {
	_ = Configure(nil)
}

func newRuntime(cfg *Config) (*runtime, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level, _ := ParseLevel(cfg.Level)

	factory := cfg.Bridge
	if factory == nil {
		var err error
		factory, err = LookupBridge(cfg.BridgeName)
		if err != nil {
			return nil, err
		}
	}

	mdc := cfg.MDCAdapter
	if mdc == nil {
		mdc = boundMDC()
	}

	hooks := make([]Hook, len(cfg.Hooks))
	copy(hooks, cfg.Hooks)

	return &runtime{
		level:   level,
		factory: factory,
		hooks:   hooks,
		mdc:     mdc,
		onError: cfg.OnError,
	}, nil
}

func (r *runtime) bridge(name string) Bridge {
	if b, ok := r.bridges.Load(name); ok {
		return b.(Bridge)
	}
	b, _ := r.bridges.LoadOrStore(name, r.factory(name))
	return b.(Bridge)
}

// contextFor merges the adapter snapshot with values carried by ctx.
// Context values win on conflicts.
func (r *runtime) contextFor(ctx context.Context) map[string]string {
	merged := r.mdc.CopyOfContextMap()
	if ctx == nil {
		return merged
	}
	for k, v := range lumbermdc.Values(ctx) {
		if merged == nil {
			merged = make(map[string]string)
		}
		merged[k] = v
	}
	return merged
}
