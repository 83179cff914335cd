package lumbermdc

import (
	"sync"

	"github.com/nilpntr/lumber/lumbertype"
)

// BasicAdapter is a process-wide diagnostic context backed by a map.
//
// Go has no goroutine-local storage, so every goroutine sees the same
// content. Request-scoped values should travel in a context.Context instead
// (see WithValue).
type BasicAdapter struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ lumbertype.MDCAdapter = (*BasicAdapter)(nil)

// NewBasicAdapter creates an empty adapter.
func NewBasicAdapter() *BasicAdapter {
	return &BasicAdapter{values: make(map[string]string)}
}

func (a *BasicAdapter) Put(key, value string) {
	a.mu.Lock()
	a.values[key] = value
	a.mu.Unlock()
}

func (a *BasicAdapter) Get(key string) (string, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.values[key]
	return v, ok
}

func (a *BasicAdapter) Remove(key string) {
	a.mu.Lock()
	delete(a.values, key)
	a.mu.Unlock()
}

func (a *BasicAdapter) Clear() {
	a.mu.Lock()
	a.values = make(map[string]string)
	a.mu.Unlock()
}

// CopyOfContextMap returns nil when the adapter is empty.
func (a *BasicAdapter) CopyOfContextMap() map[string]string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return copyMap(a.values)
}

func (a *BasicAdapter) SetContextMap(m map[string]string) {
	values := make(map[string]string, len(m))
	for k, v := range m {
		values[k] = v
	}
	a.mu.Lock()
	a.values = values
	a.mu.Unlock()
}

func copyMap(m map[string]string) map[string]string {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
