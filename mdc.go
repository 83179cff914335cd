package lumber

import (
	"github.com/nilpntr/lumber/lumberbind"
)

// MDC returns the diagnostic context attached to every event. Unless
// Config.MDCAdapter overrides it, this is the adapter obtained from the
// static binding, which stores nothing.
func MDC() MDCAdapter {
	return current.Load().mdc
}

// MDCAdapterTypeName reports the type of the statically bound adapter.
// It does not reflect Config.MDCAdapter overrides.
func MDCAdapterTypeName() string {
	return lumberbind.Singleton().AdapterTypeName()
}

// PutMDC stores value under key in the current diagnostic context.
func PutMDC(key, value string) {
	MDC().Put(key, value)
}

// GetMDC reads key from the current diagnostic context.
func GetMDC(key string) (string, bool) {
	return MDC().Get(key)
}

// RemoveMDC deletes key from the current diagnostic context.
func RemoveMDC(key string) {
	MDC().Remove(key)
}

// ClearMDC empties the current diagnostic context.
func ClearMDC() {
	MDC().Clear()
}
