package lumber

import (
	"github.com/nilpntr/lumber/lumberhook"
)

// Re-export hook types from lumberhook for convenience
type Hook = lumberhook.Hook
type BaseHook = lumberhook.BaseHook

// Re-export sealing and metrics types
type Encryptor = lumberhook.Encryptor
type SealHook = lumberhook.SealHook
type SecretboxEncryptor = lumberhook.SecretboxEncryptor
type MetricsHook = lumberhook.MetricsHook
type MetricsCollector = lumberhook.MetricsCollector

// Re-export hook functions
var (
	NewSealHook                 = lumberhook.NewSealHook
	NewSecretboxEncryptor       = lumberhook.NewSecretboxEncryptor
	ParseSealKey                = lumberhook.ParseSealKey
	NewMetricsHook              = lumberhook.NewMetricsHook
	NewInMemoryMetricsCollector = lumberhook.NewInMemoryMetricsCollector
	NewPrometheusCollector      = lumberhook.NewPrometheusCollector
)

// SealedPrefix marks a value replaced by a SealHook.
const SealedPrefix = lumberhook.SealedPrefix
