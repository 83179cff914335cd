package lumber

import (
	"context"

	"github.com/nilpntr/lumber/lumbertype"
)

// NopBridgeName is the name of the default bridge, which discards everything.
const NopBridgeName = "nop"

// nopBridge is a bridge implementation that does nothing.
type nopBridge struct{}

var _ lumbertype.Bridge = nopBridge{}

func nopFactory(string) lumbertype.Bridge { return nopBridge{} }

// Enabled always reports false so messages are never built.
func (nopBridge) Enabled(lumbertype.Level, string) bool { return false }

// Log does nothing.
func (nopBridge) Log(context.Context, lumbertype.Event) {}
