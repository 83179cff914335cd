package lumberpg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"
)

const (
	tailBatchSize  = 500
	reconnectDelay = 5 * time.Second
)

// fetcher reads rows newer than an id, oldest first.
type fetcher interface {
	fetch(ctx context.Context, afterID int64, limit int) ([]EventRow, error)
}

type bunFetcher struct {
	db *bun.DB
}

func (f *bunFetcher) fetch(ctx context.Context, afterID int64, limit int) ([]EventRow, error) {
	var rows []EventRow
	err := f.db.NewSelect().
		Model(&rows).
		Where("id > ?", afterID).
		OrderExpr("id ASC").
		Limit(limit).
		Scan(ctx)
	return rows, err
}

// Tailer follows the log_events table, waking on NOTIFY.
type Tailer struct {
	pool    *pgxpool.Pool
	rows    fetcher
	logger  *zap.Logger
	timeout time.Duration
}

// callbackError marks an error returned by the caller's callback so Tail
// returns it instead of reconnecting.
type callbackError struct {
	err error
}

func (e *callbackError) Error() string { return e.err.Error() }
func (e *callbackError) Unwrap() error { return e.err }

// NewTailer creates a tailer reading through pool. If logger is nil, a no-op
// logger will be used.
func NewTailer(pool *pgxpool.Pool, logger *zap.Logger) *Tailer {
	if logger == nil {
		logger = zap.NewNop()
	}
	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	return &Tailer{
		pool:    pool,
		rows:    &bunFetcher{db: db},
		logger:  logger,
		timeout: time.Second,
	}
}

// Tail calls fn for every event with an id greater than afterID, in id order,
// then keeps following new events until ctx is cancelled. Connection errors
// are logged and retried. An error from fn stops the tail and is returned.
func (t *Tailer) Tail(ctx context.Context, afterID int64, fn func(EventRow) error) error {
	last := afterID
	for {
		err := t.listen(ctx, &last, fn)
		if ctx.Err() != nil {
			return nil
		}
		var cbErr *callbackError
		if errors.As(err, &cbErr) {
			return cbErr.err
		}
		t.logger.Warn("Tail listener error, reconnecting",
			zap.Error(err), zap.Duration("delay", reconnectDelay))

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(reconnectDelay):
		}
	}
}

// listen establishes a connection and delivers rows after every NOTIFY.
func (t *Tailer) listen(ctx context.Context, last *int64, fn func(EventRow) error) error {
	conn, err := t.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	if _, err = conn.Exec(ctx, "LISTEN "+ChannelEventLogged); err != nil {
		return fmt.Errorf("failed to LISTEN: %w", err)
	}
	t.logger.Info("PostgreSQL LISTEN active", zap.String("channel", ChannelEventLogged))

	// Catch up on rows written before LISTEN took effect.
	if err := t.deliver(ctx, last, fn); err != nil {
		return err
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		waitCtx, cancel := context.WithTimeout(ctx, t.timeout)
		notification, err := conn.Conn().WaitForNotification(waitCtx)
		cancel()

		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			return fmt.Errorf("failed to wait for notification: %w", err)
		}

		if notification.Channel == ChannelEventLogged {
			if err := t.deliver(ctx, last, fn); err != nil {
				return err
			}
		}
	}
}

// deliver passes every row newer than *last to fn, advancing *last.
func (t *Tailer) deliver(ctx context.Context, last *int64, fn func(EventRow) error) error {
	for {
		rows, err := t.rows.fetch(ctx, *last, tailBatchSize)
		if err != nil {
			return fmt.Errorf("failed to fetch events: %w", err)
		}
		for _, row := range rows {
			if err := fn(row); err != nil {
				return &callbackError{err: err}
			}
			*last = row.ID
		}
		if len(rows) < tailBatchSize {
			return nil
		}
	}
}
