package lumbermdc

import (
	"github.com/nilpntr/lumber/lumbertype"
)

// NOPAdapterTypeName is the fully-qualified name of NOPAdapter. It is
// declared next to the type so the two cannot drift apart.
const NOPAdapterTypeName = "github.com/nilpntr/lumber/lumbermdc.NOPAdapter"

// NOPAdapter is a diagnostic context that stores nothing.
// Reads always report absent and writes are discarded.
type NOPAdapter struct {
	// Keeps the struct non-zero-sized so every NewNOPAdapter call yields a
	// distinct pointer.
	_ byte
}

var _ lumbertype.MDCAdapter = (*NOPAdapter)(nil)

// NewNOPAdapter creates a new no-operation adapter.
func NewNOPAdapter() *NOPAdapter {
	return &NOPAdapter{}
}

// Put does nothing.
func (a *NOPAdapter) Put(key, value string) {}

// Get always reports the key as absent.
func (a *NOPAdapter) Get(key string) (string, bool) {
	return "", false
}

// Remove does nothing.
func (a *NOPAdapter) Remove(key string) {}

// Clear does nothing.
func (a *NOPAdapter) Clear() {}

// CopyOfContextMap always returns nil.
func (a *NOPAdapter) CopyOfContextMap() map[string]string {
	return nil
}

// SetContextMap does nothing.
func (a *NOPAdapter) SetContextMap(m map[string]string) {}
