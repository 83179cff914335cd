package lumberhook

import (
	"context"

	"github.com/nilpntr/lumber/lumbertype"
)

// Hook provides lifecycle callbacks for log events.
// Hooks can be used for cross-cutting concerns like redaction, metrics, etc.
type Hook interface {
	// BeforeLog is called before the event is handed to the bridge.
	// It may return a modified event. Return an error to drop the event.
	BeforeLog(ctx context.Context, event lumbertype.Event) (lumbertype.Event, error)

	// AfterLog is called after the bridge accepted the event.
	AfterLog(ctx context.Context, event lumbertype.Event)
}

// BaseHook provides a default implementation of Hook that does nothing.
// Embed this in your hook implementation and override only the methods you need.
type BaseHook struct{}

func (BaseHook) BeforeLog(ctx context.Context, event lumbertype.Event) (lumbertype.Event, error) {
	return event, nil
}

func (BaseHook) AfterLog(ctx context.Context, event lumbertype.Event) {}

// RunBeforeLogHooks runs all BeforeLog hooks in sequence.
func RunBeforeLogHooks(ctx context.Context, hooks []Hook, event lumbertype.Event) (lumbertype.Event, error) {
	result := event
	for _, hook := range hooks {
		var err error
		result, err = hook.BeforeLog(ctx, result)
		if err != nil {
			return event, &lumbertype.HookError{
				HookName: getHookName(hook),
				Phase:    "BeforeLog",
				Logger:   event.Logger,
				Err:      err,
			}
		}
	}
	return result, nil
}

// RunAfterLogHooks runs all AfterLog hooks in sequence.
func RunAfterLogHooks(ctx context.Context, hooks []Hook, event lumbertype.Event) {
	for _, hook := range hooks {
		hook.AfterLog(ctx, event)
	}
}

// getHookName returns a readable name for the hook. Hooks may provide their
// own through a HookName method.
func getHookName(hook Hook) string {
	if named, ok := hook.(interface{ HookName() string }); ok {
		return named.HookName()
	}
	switch hook.(type) {
	case *SealHook:
		return "SealHook"
	case *MetricsHook:
		return "MetricsHook"
	default:
		return "UnknownHook"
	}
}
