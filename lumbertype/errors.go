package lumbertype

import (
	"errors"
	"fmt"
)

// HookError represents an error that occurred during hook execution.
type HookError struct {
	HookName string
	Phase    string
	Logger   string
	Err      error
}

func (e *HookError) Error() string {
	if e.Logger != "" {
		return fmt.Sprintf("hook %s failed in phase %s for logger %s: %v", e.HookName, e.Phase, e.Logger, e.Err)
	}
	return fmt.Sprintf("hook %s failed in phase %s: %v", e.HookName, e.Phase, e.Err)
}

func (e *HookError) Unwrap() error {
	return e.Err
}

// MigrationError represents an error that occurred during database migration.
type MigrationError struct {
	Operation string
	Version   string
	Err       error
}

func (e *MigrationError) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("migration %s failed for version %s: %v", e.Operation, e.Version, e.Err)
	}
	return fmt.Sprintf("migration %s failed: %v", e.Operation, e.Err)
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// Is matches ErrMigrationFailed, and ErrInvalidMigrationConfig when the
// migration was rejected before reaching the database.
func (e *MigrationError) Is(target error) bool {
	switch target {
	case ErrMigrationFailed:
		return true
	case ErrInvalidMigrationConfig:
		var valErr *ValidationError
		return errors.As(e.Err, &valErr)
	}
	return false
}

// ValidationError represents a validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %s: %s", e.Field, e.Message)
}

// BridgeError represents a failure inside a bridge while writing events.
type BridgeError struct {
	Bridge string
	Err    error
}

func (e *BridgeError) Error() string {
	return fmt.Sprintf("bridge %s: %v", e.Bridge, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// Error variables
var (
	ErrInvalidLevel            = errors.New("invalid log level")
	ErrBridgeNotFound          = errors.New("bridge not found")
	ErrBridgeAlreadyRegistered = errors.New("bridge already registered")
	ErrNilBridgeFactory        = errors.New("bridge factory is nil")
	ErrSinkNotStarted          = errors.New("sink not started")
	ErrSinkAlreadyStarted      = errors.New("sink already started")
	ErrSinkStopped             = errors.New("sink stopped")
	ErrInvalidSealKey          = errors.New("invalid seal key")
	ErrMigrationFailed         = errors.New("migration failed")
	ErrInvalidMigrationConfig  = errors.New("invalid migration config")
)
