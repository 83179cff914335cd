package main

import (
	"context"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/nilpntr/lumber"
	"github.com/nilpntr/lumber/lumberkit"
	"github.com/nilpntr/lumber/lumberpg"
	"github.com/nilpntr/lumber/lumberzap"
)

// session holds the resources behind the configured bridge.
type session struct {
	zap  *lumberzap.Bridge
	sink *lumberpg.Sink
	pool *pgxpool.Pool
}

// Close flushes and releases the session's resources and restores the
// default facade configuration.
func (s *session) Close(ctx context.Context) error {
	defer lumber.Reset()

	var err error
	if s.sink != nil {
		err = s.sink.Stop(ctx)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.zap != nil {
		_ = s.zap.Sync()
	}
	return err
}

// openSession builds the bridge selected by cfg, writing text output to w,
// and installs it in the facade.
func openSession(ctx context.Context, cfg *FileConfig, w io.Writer) (*session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	level, _ := lumber.ParseLevel(cfg.Log.Level)

	s := &session{}
	facade := &lumber.Config{Level: cfg.Log.Level}

	switch cfg.Log.Bridge {
	case "zap":
		b, err := lumberzap.New(&lumberzap.Config{
			Level:            level,
			Structured:       cfg.Log.Encoding == "json",
			IncludeTimestamp: true,
			IncludeCaller:    cfg.Log.Caller,
			Output:           w,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create zap bridge: %w", err)
		}
		s.zap = b
		facade.Bridge = b.Factory()
	case "logfmt":
		facade.Bridge = lumberkit.NewLogfmt(w, level, lumberkit.WithErrorHandler(func(err error) {
			zap.L().Warn("logfmt write failed", zap.Error(err))
		})).Factory()
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		sink, err := lumberpg.NewSink(pool, sinkConfig(cfg, level))
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := sink.Start(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		s.pool, s.sink = pool, sink
		facade.Bridge = sink.Factory()
	default:
		facade.BridgeName = cfg.Log.Bridge
	}

	if hook, err := sealHook(cfg); err != nil {
		_ = s.Close(ctx)
		return nil, err
	} else if hook != nil {
		facade.Hooks = append(facade.Hooks, hook)
	}
	facade.OnError = func(err error) {
		zap.L().Warn("Log event dropped", zap.Error(err))
	}

	if err := lumber.Configure(facade); err != nil {
		_ = s.Close(ctx)
		return nil, err
	}
	return s, nil
}

func sinkConfig(cfg *FileConfig, level lumber.Level) *lumberpg.Config {
	interval, _ := cfg.flushInterval()
	return &lumberpg.Config{
		Level:         level,
		BatchSize:     cfg.Postgres.BatchSize,
		BufferSize:    cfg.Postgres.BufferSize,
		FlushInterval: interval,
		Logger:        zap.L().Named("sink"),
	}
}

// sealHook returns nil when no fields are configured for sealing.
func sealHook(cfg *FileConfig) (*lumber.SealHook, error) {
	if cfg.Seal.Key == "" {
		return nil, nil
	}
	key, err := lumber.ParseSealKey(cfg.Seal.Key)
	if err != nil {
		return nil, err
	}
	return lumber.NewSealHook(lumber.NewSecretboxEncryptor(key), cfg.Seal.Fields...), nil
}
