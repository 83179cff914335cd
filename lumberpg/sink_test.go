package lumberpg

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nilpntr/lumber/lumbertype"
)

type fakeStore struct {
	mu        sync.Mutex
	batches   [][]EventRow
	notifies  []int
	insertErr error
	inserted  chan struct{}
}

func newFakeStore() *fakeStore {
	return &fakeStore{inserted: make(chan struct{}, 64)}
}

func (f *fakeStore) insert(_ context.Context, rows []*EventRow) error {
	f.mu.Lock()
	defer func() {
		f.mu.Unlock()
		f.inserted <- struct{}{}
	}()
	if f.insertErr != nil {
		return f.insertErr
	}
	batch := make([]EventRow, len(rows))
	for i, r := range rows {
		batch[i] = *r
	}
	f.batches = append(f.batches, batch)
	return nil
}

func (f *fakeStore) notify(_ context.Context, count int) error {
	f.mu.Lock()
	f.notifies = append(f.notifies, count)
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) snapshot() ([][]EventRow, []int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]EventRow(nil), f.batches...), append([]int(nil), f.notifies...)
}

func event(msg string, level lumbertype.Level) lumbertype.Event {
	return lumbertype.Event{
		Logger:  "pg-test",
		Level:   level,
		Message: msg,
		Time:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.SetDefaults()

	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1024, cfg.BufferSize)
	assert.Equal(t, time.Second, cfg.FlushInterval)
	assert.NotNil(t, cfg.Logger)
	assert.False(t, cfg.DisableNotify)
	require.NoError(t, cfg.Validate())

	large := &Config{BatchSize: 2000}
	large.SetDefaults()
	assert.Equal(t, 2000, large.BufferSize)
	require.NoError(t, large.Validate())

	bad := &Config{BatchSize: 10, BufferSize: 5}
	bad.SetDefaults()
	var valErr *lumbertype.ValidationError
	require.ErrorAs(t, bad.Validate(), &valErr)
	assert.Equal(t, "BufferSize", valErr.Field)
}

func TestSinkFlushesOnBatchSize(t *testing.T) {
	store := newFakeStore()
	sink, err := newSink(store, &Config{BatchSize: 2, BufferSize: 8, FlushInterval: time.Hour})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	b := sink.Factory()("orders")
	b.Log(context.Background(), event("one", lumbertype.LevelInfo))
	b.Log(context.Background(), event("two", lumbertype.LevelWarn))

	select {
	case <-store.inserted:
	case <-time.After(5 * time.Second):
		t.Fatal("batch was not flushed")
	}

	require.NoError(t, sink.Stop(context.Background()))

	batches, notifies := store.snapshot()
	require.Len(t, batches, 1)
	assert.Equal(t, "one", batches[0][0].Message)
	assert.Equal(t, "warn", batches[0][1].Level)
	assert.Equal(t, []int{2}, notifies)
}

func TestSinkStopFlushesRemaining(t *testing.T) {
	store := newFakeStore()
	sink, err := newSink(store, &Config{FlushInterval: time.Hour, DisableNotify: true})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	b := sink.Factory()("x")
	for i := 0; i < 5; i++ {
		b.Log(context.Background(), event("queued", lumbertype.LevelInfo))
	}
	require.NoError(t, sink.Stop(context.Background()))

	batches, notifies := store.snapshot()
	var total int
	for _, batch := range batches {
		total += len(batch)
	}
	assert.Equal(t, 5, total)
	assert.Empty(t, notifies)

	b.Log(context.Background(), event("late", lumbertype.LevelInfo))
	assert.Equal(t, int64(1), sink.Dropped())
}

func TestSinkStopAccountsForConcurrentEvents(t *testing.T) {
	const (
		loggers = 8
		events  = 200
	)
	for i := 0; i < 50; i++ {
		store := newFakeStore()
		sink, err := newSink(store, &Config{BatchSize: 1000, BufferSize: 4096, FlushInterval: time.Hour, DisableNotify: true})
		require.NoError(t, err)
		require.NoError(t, sink.Start(context.Background()))

		var wg sync.WaitGroup
		for l := 0; l < loggers; l++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				b := sink.Factory()("concurrent")
				for e := 0; e < events; e++ {
					b.Log(context.Background(), event("e", lumbertype.LevelInfo))
				}
			}()
		}
		require.NoError(t, sink.Stop(context.Background()))
		wg.Wait()

		batches, _ := store.snapshot()
		var inserted int64
		for _, batch := range batches {
			inserted += int64(len(batch))
		}
		require.Equal(t, int64(loggers*events), inserted+sink.Dropped())
	}
}

func TestSinkLifecycleErrors(t *testing.T) {
	sink, err := newSink(newFakeStore(), nil)
	require.NoError(t, err)

	require.ErrorIs(t, sink.Stop(context.Background()), lumbertype.ErrSinkNotStarted)
	require.NoError(t, sink.Start(context.Background()))
	require.ErrorIs(t, sink.Start(context.Background()), lumbertype.ErrSinkAlreadyStarted)
	require.NoError(t, sink.Stop(context.Background()))
	require.ErrorIs(t, sink.Stop(context.Background()), lumbertype.ErrSinkStopped)
	require.ErrorIs(t, sink.Start(context.Background()), lumbertype.ErrSinkStopped)
}

func TestSinkDropsWhenQueueFull(t *testing.T) {
	sink, err := newSink(newFakeStore(), &Config{BatchSize: 1, BufferSize: 2})
	require.NoError(t, err)

	// not started, so nothing drains the queue
	b := sink.Factory()("x")
	for i := 0; i < 5; i++ {
		b.Log(context.Background(), event("e", lumbertype.LevelError))
	}
	assert.Equal(t, int64(3), sink.Dropped())
}

func TestSinkLevelFilter(t *testing.T) {
	sink, err := newSink(newFakeStore(), &Config{Level: lumbertype.LevelWarn})
	require.NoError(t, err)

	b := sink.Factory()("x")
	assert.False(t, b.Enabled(lumbertype.LevelInfo, ""))
	assert.True(t, b.Enabled(lumbertype.LevelWarn, ""))
	assert.False(t, b.Enabled(lumbertype.LevelOff, ""))

	b.Log(context.Background(), event("skipped", lumbertype.LevelDebug))
	assert.Empty(t, sink.queue)
}

func TestSinkInsertFailureIsLogged(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	store := newFakeStore()
	store.insertErr = errors.New("connection refused")

	sink, err := newSink(store, &Config{BatchSize: 1, Logger: zap.New(core)})
	require.NoError(t, err)
	require.NoError(t, sink.Start(context.Background()))

	sink.Factory()("x").Log(context.Background(), event("lost", lumbertype.LevelInfo))
	require.NoError(t, sink.Stop(context.Background()))

	entries := logs.FilterMessage("Failed to insert log events").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "connection refused", entries[0].ContextMap()["error"])
	assert.Equal(t, int64(1), sink.Dropped())
}

type stringer struct{}

func (stringer) String() string { return "stringer" }

func TestNewEventRow(t *testing.T) {
	ev := event("hello", lumbertype.LevelError)
	ev.Err = errors.New("boom")
	ev.Tag = "audit"
	ev.Context = map[string]string{"request_id": "r1"}
	ev.Fields = []lumbertype.Field{
		{Key: "n", Value: 3},
		{Key: "cause", Value: errors.New("inner")},
		{Key: "s", Value: stringer{}},
		{Key: "nan", Value: math.NaN()},
		{Key: "ch", Value: make(chan int)},
		{Key: "list", Value: []string{"a"}},
		{Key: "n", Value: 4},
	}

	row := newEventRow(ev)
	assert.Equal(t, "pg-test", row.Logger)
	assert.Equal(t, "error", row.Level)
	assert.Equal(t, "boom", row.Error)
	assert.Equal(t, "audit", row.Tag)
	assert.Equal(t, ev.Time, row.LoggedAt)
	assert.Equal(t, "r1", row.Context["request_id"])

	assert.Equal(t, 4, row.Fields["n"])
	assert.Equal(t, "inner", row.Fields["cause"])
	assert.Equal(t, "stringer", row.Fields["s"])
	assert.Equal(t, "NaN", row.Fields["nan"])
	assert.IsType(t, "", row.Fields["ch"])
	assert.Equal(t, []string{"a"}, row.Fields["list"])

	empty := newEventRow(lumbertype.Event{})
	assert.Nil(t, empty.Fields)
	assert.False(t, empty.LoggedAt.IsZero())
}

type fakeFetcher struct {
	rows []EventRow
}

func (f *fakeFetcher) fetch(_ context.Context, afterID int64, limit int) ([]EventRow, error) {
	var out []EventRow
	for _, r := range f.rows {
		if r.ID > afterID && len(out) < limit {
			out = append(out, r)
		}
	}
	return out, nil
}

func TestTailerDeliver(t *testing.T) {
	var rows []EventRow
	for i := int64(1); i <= tailBatchSize+3; i++ {
		rows = append(rows, EventRow{ID: i, Message: "m"})
	}
	tailer := &Tailer{rows: &fakeFetcher{rows: rows}, logger: zap.NewNop()}

	var seen []int64
	last := int64(2)
	err := tailer.deliver(context.Background(), &last, func(r EventRow) error {
		seen = append(seen, r.ID)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, tailBatchSize+1)
	assert.Equal(t, int64(3), seen[0])
	assert.Equal(t, int64(tailBatchSize+3), last)

	stop := errors.New("stop")
	last = 0
	err = tailer.deliver(context.Background(), &last, func(r EventRow) error {
		if r.ID == 2 {
			return stop
		}
		return nil
	})
	var cbErr *callbackError
	require.ErrorAs(t, err, &cbErr)
	require.ErrorIs(t, err, stop)
	assert.Equal(t, int64(1), last)
}
