package lumbermigrate

import (
	"time"

	"github.com/nilpntr/lumber/lumbertype"
)

// Options contains configuration for database migrations.
type Options struct {
	// SchemaName is the schema the log tables live in.
	// Defaults to "public" if not specified.
	SchemaName string

	// MigrationsTable is the name of the table used to track migration state.
	// The lock table is named after it with a "_locks" suffix.
	// Defaults to "lumber_migrations" if not specified.
	MigrationsTable string

	// Timeout bounds a whole migration command.
	// Defaults to 5 minutes if not specified.
	Timeout time.Duration

	// LockTimeout bounds waits on table locks taken by migration statements.
	// Defaults to 15 minutes if not specified.
	LockTimeout time.Duration

	// DryRun reports what would be applied without changing the database.
	DryRun bool

	// StatementTimeout sets the timeout for individual SQL statements.
	// Defaults to 1 hour if not specified.
	StatementTimeout time.Duration
}

// DefaultOptions returns a default migration configuration.
func DefaultOptions() *Options {
	o := &Options{}
	o.SetDefaults()
	return o
}

// LocksTable returns the name of the migration lock table.
func (o *Options) LocksTable() string {
	return o.MigrationsTable + "_locks"
}

// Validate checks if the migration options are valid.
func (o *Options) Validate() error {
	if o.SchemaName == "" {
		return &lumbertype.ValidationError{Field: "SchemaName", Message: "cannot be empty"}
	}
	if o.MigrationsTable == "" {
		return &lumbertype.ValidationError{Field: "MigrationsTable", Message: "cannot be empty"}
	}
	if o.Timeout <= 0 {
		return &lumbertype.ValidationError{Field: "Timeout", Message: "must be greater than 0"}
	}
	if o.LockTimeout <= 0 {
		return &lumbertype.ValidationError{Field: "LockTimeout", Message: "must be greater than 0"}
	}
	if o.StatementTimeout <= 0 {
		return &lumbertype.ValidationError{Field: "StatementTimeout", Message: "must be greater than 0"}
	}
	return nil
}

// SetDefaults sets default values for unspecified options.
func (o *Options) SetDefaults() {
	if o.SchemaName == "" {
		o.SchemaName = "public"
	}
	if o.MigrationsTable == "" {
		o.MigrationsTable = "lumber_migrations"
	}
	if o.Timeout == 0 {
		o.Timeout = 5 * time.Minute
	}
	if o.LockTimeout == 0 {
		o.LockTimeout = 15 * time.Minute
	}
	if o.StatementTimeout == 0 {
		o.StatementTimeout = time.Hour
	}
}

// Clone creates a copy of the options.
func (o *Options) Clone() *Options {
	c := *o
	return &c
}

// MergeFrom overrides o with the non-zero values of other. DryRun is always
// taken from other.
func (o *Options) MergeFrom(other *Options) {
	if other == nil {
		return
	}
	if other.SchemaName != "" {
		o.SchemaName = other.SchemaName
	}
	if other.MigrationsTable != "" {
		o.MigrationsTable = other.MigrationsTable
	}
	if other.Timeout != 0 {
		o.Timeout = other.Timeout
	}
	if other.LockTimeout != 0 {
		o.LockTimeout = other.LockTimeout
	}
	if other.StatementTimeout != 0 {
		o.StatementTimeout = other.StatementTimeout
	}
	o.DryRun = other.DryRun
}
