// Package lumberproxy provides a recording bridge for tests.
package lumberproxy

import (
	"context"
	"sync"

	"github.com/nilpntr/lumber/lumbertype"
)

// Message is a recorded event.
type Message struct {
	Name    string
	Level   lumbertype.Level
	Message string
	Err     error
	Tag     string
	Fields  []lumbertype.Field
	Context map[string]string
}

// Proxy records every event it receives. All levels start enabled.
type Proxy struct {
	mu       sync.Mutex
	disabled map[lumbertype.Level]bool
	action   func(Message)
	messages []Message
}

// New creates a proxy with every level enabled.
func New() *Proxy {
	return &Proxy{disabled: make(map[lumbertype.Level]bool)}
}

// SetEnabled toggles a single level.
func (p *Proxy) SetEnabled(level lumbertype.Level, enabled bool) {
	p.mu.Lock()
	p.disabled[level] = !enabled
	p.mu.Unlock()
}

// SetAllEnabled toggles every level.
func (p *Proxy) SetAllEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for l := lumbertype.LevelTrace; l < lumbertype.LevelOff; l++ {
		p.disabled[l] = !enabled
	}
}

// SetAction installs a callback invoked for every recorded message.
func (p *Proxy) SetAction(action func(Message)) {
	p.mu.Lock()
	p.action = action
	p.mu.Unlock()
}

// Messages returns a copy of the recorded messages.
func (p *Proxy) Messages() []Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Message, len(p.messages))
	copy(out, p.messages)
	return out
}

// Reset clears recorded messages and re-enables every level.
func (p *Proxy) Reset() {
	p.mu.Lock()
	p.messages = nil
	p.disabled = make(map[lumbertype.Level]bool)
	p.mu.Unlock()
}

// Factory returns a BridgeFactory whose bridges record into p.
func (p *Proxy) Factory() lumbertype.BridgeFactory {
	return func(name string) lumbertype.Bridge {
		return &bridge{name: name, proxy: p}
	}
}

func (p *Proxy) enabled(level lumbertype.Level) bool {
	if level >= lumbertype.LevelOff {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.disabled[level]
}

func (p *Proxy) record(m Message) {
	p.mu.Lock()
	p.messages = append(p.messages, m)
	action := p.action
	p.mu.Unlock()
	if action != nil {
		action(m)
	}
}

type bridge struct {
	name  string
	proxy *Proxy
}

func (b *bridge) Enabled(level lumbertype.Level, _ string) bool {
	return b.proxy.enabled(level)
}

func (b *bridge) Log(_ context.Context, event lumbertype.Event) {
	if !b.proxy.enabled(event.Level) {
		return
	}
	b.proxy.record(Message{
		Name:    b.name,
		Level:   event.Level,
		Message: event.Message,
		Err:     event.Err,
		Tag:     event.Tag,
		Fields:  event.Fields,
		Context: event.Context,
	})
}
