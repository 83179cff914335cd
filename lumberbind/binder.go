// Package lumberbind holds the static binding between the lumber facade and
// its diagnostic-context adapter.
//
// The binding is fixed to lumbermdc.NOPAdapter. The facade queries it once per
// process; applications that want a working diagnostic context pass their own
// adapter through lumber.Config instead.
package lumberbind

import (
	"sync"

	"github.com/nilpntr/lumber/lumbermdc"
	"github.com/nilpntr/lumber/lumbertype"
)

// Binder is the process-wide access point used to discover the
// diagnostic-context adapter. It holds no state and is never mutated.
type Binder struct{}

var singleton = lazyBinder(newBinder)

// Singleton returns the one process-wide Binder.
func Singleton() *Binder {
	return singleton()
}

// Adapter returns a new no-op adapter on every call. Instances are never
// cached or shared.
func (b *Binder) Adapter() lumbertype.MDCAdapter {
	return lumbermdc.NewNOPAdapter()
}

// AdapterTypeName returns the fully-qualified type name of the values
// returned by Adapter.
func (b *Binder) AdapterTypeName() string {
	return lumbermdc.NOPAdapterTypeName
}

func newBinder() *Binder {
	return &Binder{}
}

// lazyBinder wraps construct so it runs at most once, on first use, and every
// caller observes the same value.
func lazyBinder(construct func() *Binder) func() *Binder {
	return sync.OnceValue(construct)
}
