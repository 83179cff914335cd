package lumber

import (
	"github.com/nilpntr/lumber/lumbertype"
)

// Re-export error variables from lumbertype for convenience
var (
	ErrInvalidLevel            = lumbertype.ErrInvalidLevel
	ErrBridgeNotFound          = lumbertype.ErrBridgeNotFound
	ErrBridgeAlreadyRegistered = lumbertype.ErrBridgeAlreadyRegistered
	ErrNilBridgeFactory        = lumbertype.ErrNilBridgeFactory
	ErrSinkNotStarted          = lumbertype.ErrSinkNotStarted
	ErrSinkAlreadyStarted      = lumbertype.ErrSinkAlreadyStarted
	ErrSinkStopped             = lumbertype.ErrSinkStopped
	ErrInvalidSealKey          = lumbertype.ErrInvalidSealKey
	ErrMigrationFailed         = lumbertype.ErrMigrationFailed
	ErrInvalidMigrationConfig  = lumbertype.ErrInvalidMigrationConfig
)

// Re-export error types
type ValidationError = lumbertype.ValidationError
type HookError = lumbertype.HookError
type MigrationError = lumbertype.MigrationError
type BridgeError = lumbertype.BridgeError
