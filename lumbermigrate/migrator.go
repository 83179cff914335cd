// Package lumbermigrate manages the schema of the PostgreSQL log sink.
package lumbermigrate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"

	"github.com/nilpntr/lumber/lumbertype"
)

// unlockTimeout bounds the release of the migration lock.
const unlockTimeout = 30 * time.Second

// Migrator handles database migrations for the log_events table.
type Migrator struct {
	databaseURL string
	options     *Options
}

// MigrationStatus represents the status of a migration.
type MigrationStatus struct {
	Name    string
	Comment string
	Version int64
	GroupID int64
	Applied bool
}

// New creates a new migrator with the given database URL and options.
// options is copied; nil means DefaultOptions.
func New(databaseURL string, options *Options) *Migrator {
	if options == nil {
		options = DefaultOptions()
	} else {
		options = options.Clone()
		options.SetDefaults()
	}
	return &Migrator{
		databaseURL: databaseURL,
		options:     options,
	}
}

// Options returns a copy of the migrator's options.
func (m *Migrator) Options() *Options {
	return m.options.Clone()
}

// Validate checks if the migration configuration is valid.
func (m *Migrator) Validate() error {
	if m.databaseURL == "" {
		return &lumbertype.ValidationError{Field: "DatabaseURL", Message: "cannot be empty"}
	}
	if _, err := pgxpool.ParseConfig(m.databaseURL); err != nil {
		return &lumbertype.ValidationError{
			Field:   "DatabaseURL",
			Message: fmt.Sprintf("invalid format: %v", err),
		}
	}
	return m.options.Validate()
}

// Up applies all pending migrations as one group and returns them. In dry-run
// mode nothing is applied and the pending migrations are returned.
func (m *Migrator) Up(ctx context.Context) ([]MigrationStatus, error) {
	var applied []MigrationStatus
	err := m.run(ctx, "up", func(ctx context.Context, migrator *migrate.Migrator) error {
		if m.options.DryRun {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return err
			}
			applied = toStatus(ms.Unapplied())
			return nil
		}
		group, err := migrator.Migrate(ctx)
		if err != nil {
			return err
		}
		if group.IsZero() {
			zap.L().Info("No migrations to apply")
			return nil
		}
		applied = toStatus(group.Migrations)
		zap.L().Info("Applied migrations",
			zap.Int64("group", group.ID), zap.Int("count", len(group.Migrations)))
		return nil
	})
	return applied, err
}

// Rollback rolls back the last migration group and returns its migrations.
func (m *Migrator) Rollback(ctx context.Context) ([]MigrationStatus, error) {
	var rolledBack []MigrationStatus
	err := m.run(ctx, "rollback", func(ctx context.Context, migrator *migrate.Migrator) error {
		var err error
		rolledBack, err = m.rollbackOnce(ctx, migrator)
		return err
	})
	return rolledBack, err
}

// Down rolls back every applied migration group.
func (m *Migrator) Down(ctx context.Context) ([]MigrationStatus, error) {
	var rolledBack []MigrationStatus
	err := m.run(ctx, "down", func(ctx context.Context, migrator *migrate.Migrator) error {
		if m.options.DryRun {
			ms, err := migrator.MigrationsWithStatus(ctx)
			if err != nil {
				return err
			}
			rolledBack = toStatus(ms.Applied())
			return nil
		}
		for {
			group, err := m.rollbackOnce(ctx, migrator)
			if err != nil {
				return err
			}
			if len(group) == 0 {
				return nil
			}
			rolledBack = append(rolledBack, group...)
		}
	})
	return rolledBack, err
}

func (m *Migrator) rollbackOnce(ctx context.Context, migrator *migrate.Migrator) ([]MigrationStatus, error) {
	if m.options.DryRun {
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return nil, err
		}
		last := ms.LastGroup()
		if last.IsZero() {
			return nil, nil
		}
		return toStatus(last.Migrations), nil
	}
	group, err := migrator.Rollback(ctx)
	if err != nil {
		return nil, err
	}
	if group.IsZero() {
		return nil, nil
	}
	zap.L().Info("Rolled back migrations",
		zap.Int64("group", group.ID), zap.Int("count", len(group.Migrations)))
	return toStatus(group.Migrations), nil
}

// Version returns the id of the last applied migration group, or 0.
func (m *Migrator) Version(ctx context.Context) (int64, error) {
	var version int64
	err := m.run(ctx, "version", func(ctx context.Context, migrator *migrate.Migrator) error {
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		version = ms.LastGroupID()
		return nil
	})
	return version, err
}

// Status returns the status of all available migrations.
func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	var status []MigrationStatus
	err := m.run(ctx, "status", func(ctx context.Context, migrator *migrate.Migrator) error {
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		status = toStatus(ms)
		return nil
	})
	return status, err
}

// Pending returns the migrations that have not been applied yet.
func (m *Migrator) Pending(ctx context.Context) ([]MigrationStatus, error) {
	var pending []MigrationStatus
	err := m.run(ctx, "pending", func(ctx context.Context, migrator *migrate.Migrator) error {
		ms, err := migrator.MigrationsWithStatus(ctx)
		if err != nil {
			return err
		}
		pending = toStatus(ms.Unapplied())
		return nil
	})
	return pending, err
}

// run opens a pool, takes the migration lock and calls fn. The pool is closed
// before run returns.
func (m *Migrator) run(ctx context.Context, operation string, fn func(context.Context, *migrate.Migrator) error) error {
	if err := m.Validate(); err != nil {
		return &lumbertype.MigrationError{Operation: operation, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, m.options.Timeout)
	defer cancel()

	pool, err := m.openPool(ctx)
	if err != nil {
		return &lumbertype.MigrationError{Operation: operation, Err: err}
	}
	defer pool.Close()

	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, Migrations,
		migrate.WithTableName(m.options.MigrationsTable),
		migrate.WithLocksTableName(m.options.LocksTable()),
	)
	if err = migrator.Init(ctx); err != nil {
		return &lumbertype.MigrationError{Operation: operation, Err: err}
	}
	if err = migrator.Lock(ctx); err != nil {
		return &lumbertype.MigrationError{Operation: operation, Err: err}
	}
	defer func() {
		unlockCtx, cancel := releaseContext(ctx)
		defer cancel()
		if err := migrator.Unlock(unlockCtx); err != nil {
			zap.L().Sugar().Errorf("failed to release migration lock in %s: %v", m.options.LocksTable(), err)
		}
	}()

	if err = fn(ctx, migrator); err != nil {
		return &lumbertype.MigrationError{Operation: operation, Err: err}
	}
	return nil
}

// releaseContext detaches ctx from its deadline and cancellation so the lock
// is released even after the migration timed out or was interrupted.
func releaseContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), unlockTimeout)
}

func (m *Migrator) openPool(ctx context.Context) (*pgxpool.Pool, error) {
	config, err := m.poolConfig()
	if err != nil {
		zap.L().Sugar().Errorf("failed to parse database url: %v", err)
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		zap.L().Sugar().Errorf("failed to connect to database: %v", err)
		return nil, err
	}
	return pool, nil
}

// poolConfig applies the schema and timeouts as session parameters.
func (m *Migrator) poolConfig() (*pgxpool.Config, error) {
	config, err := pgxpool.ParseConfig(m.databaseURL)
	if err != nil {
		return nil, err
	}
	params := config.ConnConfig.RuntimeParams
	params["search_path"] = m.options.SchemaName
	params["statement_timeout"] = strconv.FormatInt(m.options.StatementTimeout.Milliseconds(), 10)
	params["lock_timeout"] = strconv.FormatInt(m.options.LockTimeout.Milliseconds(), 10)
	return config, nil
}

func toStatus(ms migrate.MigrationSlice) []MigrationStatus {
	status := make([]MigrationStatus, 0, len(ms))
	for _, migration := range ms {
		status = append(status, MigrationStatus{
			Name:    migration.Name,
			Comment: migration.Comment,
			Version: migration.ID,
			GroupID: migration.GroupID,
			Applied: migration.IsApplied(),
		})
	}
	return status
}
