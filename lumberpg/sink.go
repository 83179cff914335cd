// Package lumberpg persists log events to PostgreSQL and tails them back.
package lumberpg

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"go.uber.org/zap"

	"github.com/nilpntr/lumber/lumbertype"
)

// store writes batches. The bun implementation is used in production.
type store interface {
	insert(ctx context.Context, rows []*EventRow) error
	notify(ctx context.Context, count int) error
}

type bunStore struct {
	db *bun.DB
}

func (s *bunStore) insert(ctx context.Context, rows []*EventRow) error {
	_, err := s.db.NewInsert().Model(&rows).Exec(ctx)
	return err
}

func (s *bunStore) notify(ctx context.Context, count int) error {
	_, err := s.db.ExecContext(ctx, "SELECT pg_notify(?, ?)", ChannelEventLogged, strconv.Itoa(count))
	return err
}

// Sink batches log events into the log_events table.
type Sink struct {
	config *Config
	store  store

	queue   chan *EventRow
	dropped atomic.Int64

	// State management. enqueue holds the read lock across its send so no
	// row lands in the queue after Stop.
	mu      sync.RWMutex
	started bool
	stopped bool
	quit    chan struct{}
	done    chan struct{}
}

// NewSink creates a sink writing through pool. The pool stays owned by the
// caller.
func NewSink(pool *pgxpool.Pool, config *Config) (*Sink, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	db := bun.NewDB(stdlib.OpenDBFromPool(pool), pgdialect.New())
	return newSink(&bunStore{db: db}, config)
}

func newSink(s store, config *Config) (*Sink, error) {
	if config == nil {
		config = &Config{}
	}
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Sink{
		config: config,
		store:  s,
		queue:  make(chan *EventRow, config.BufferSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// Start launches the flush loop. It returns immediately.
func (s *Sink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return lumbertype.ErrSinkStopped
	}
	if s.started {
		return lumbertype.ErrSinkAlreadyStarted
	}
	s.started = true

	go s.run(context.WithoutCancel(ctx))
	return nil
}

// Stop flushes queued events and stops the flush loop. It waits until the
// final flush finishes or ctx is done.
func (s *Sink) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return lumbertype.ErrSinkNotStarted
	}
	if s.stopped {
		s.mu.Unlock()
		return lumbertype.ErrSinkStopped
	}
	s.stopped = true
	close(s.quit)
	s.mu.Unlock()

	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of events discarded because the queue was full
// or the sink was stopped.
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Factory returns a BridgeFactory whose bridges enqueue into s.
func (s *Sink) Factory() lumbertype.BridgeFactory {
	return func(string) lumbertype.Bridge {
		return &bridge{sink: s}
	}
}

func (s *Sink) enqueue(row *EventRow) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		s.dropped.Add(1)
		return
	}
	select {
	case s.queue <- row:
	default:
		s.dropped.Add(1)
	}
}

// run is the main loop: it flushes when a batch fills up or the interval
// elapses.
func (s *Sink) run(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.config.FlushInterval)
	defer ticker.Stop()

	batch := make([]*EventRow, 0, s.config.BatchSize)
	for {
		select {
		case row := <-s.queue:
			batch = append(batch, row)
			if len(batch) >= s.config.BatchSize {
				batch = s.flush(ctx, batch)
			}
		case <-ticker.C:
			batch = s.flush(ctx, batch)
		case <-s.quit:
			s.drain(ctx, batch)
			return
		}
	}
}

// drain flushes whatever is still queued.
func (s *Sink) drain(ctx context.Context, batch []*EventRow) {
	for {
		select {
		case row := <-s.queue:
			batch = append(batch, row)
			if len(batch) >= s.config.BatchSize {
				batch = s.flush(ctx, batch)
			}
		default:
			s.flush(ctx, batch)
			return
		}
	}
}

// flush writes batch and returns it emptied for reuse. Failed batches are
// logged and discarded.
func (s *Sink) flush(ctx context.Context, batch []*EventRow) []*EventRow {
	if len(batch) == 0 {
		return batch
	}
	count := len(batch)

	if err := s.store.insert(ctx, batch); err != nil {
		s.config.Logger.Error("Failed to insert log events",
			zap.Error(err), zap.Int("count", count))
		s.dropped.Add(int64(count))
		return batch[:0]
	}

	if !s.config.DisableNotify {
		if err := s.store.notify(ctx, count); err != nil {
			s.config.Logger.Warn("Failed to notify listeners",
				zap.Error(err), zap.String("channel", ChannelEventLogged))
		}
	}

	s.config.Logger.Debug("Flushed log events", zap.Int("count", count))
	clear(batch)
	return batch[:0]
}

type bridge struct {
	sink *Sink
}

func (b *bridge) Enabled(level lumbertype.Level, _ string) bool {
	return level >= b.sink.config.Level && level < lumbertype.LevelOff
}

func (b *bridge) Log(_ context.Context, event lumbertype.Event) {
	if !b.Enabled(event.Level, event.Tag) {
		return
	}
	b.sink.enqueue(newEventRow(event))
}
