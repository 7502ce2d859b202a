package database

import (
	"context"
	"fmt"
	"time"

	pgx "github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// Ping verifies the pool is alive. Used by health check endpoints.
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.Pool == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.Pool.Ping(pingCtx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}

// Close shuts the pool down. Idempotent.
func (db *PostgresDB) Close() error {
	if db.Pool == nil {
		return nil
	}
	db.Pool.Close()
	db.Pool = nil
	log.Info().Msg("Database connection pool closed")
	return nil
}

// PoolStats is a snapshot of the pgx pool counters.
type PoolStats struct {
	AcquireCount            int64
	AcquireDuration         time.Duration
	AcquiredConns           int32
	CanceledAcquireCount    int64
	ConstructingConns       int32
	EmptyAcquireCount       int64
	IdleConns               int32
	MaxConns                int32
	TotalConns              int32
	NewConnsCount           int64
	MaxLifetimeDestroyCount int64
	MaxIdleDestroyCount     int64
}

// Stats reads the pool counters.
func (db *PostgresDB) Stats() (*PoolStats, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	raw := db.Pool.Stat()
	stats := &PoolStats{
		AcquiredConns:           raw.AcquiredConns(),
		ConstructingConns:       raw.ConstructingConns(),
		IdleConns:               raw.IdleConns(),
		TotalConns:              raw.TotalConns(),
		MaxConns:                raw.MaxConns(),
		AcquireCount:            raw.AcquireCount(),
		AcquireDuration:         raw.AcquireDuration(),
		CanceledAcquireCount:    raw.CanceledAcquireCount(),
		EmptyAcquireCount:       raw.EmptyAcquireCount(),
		NewConnsCount:           raw.NewConnsCount(),
		MaxLifetimeDestroyCount: raw.MaxLifetimeDestroyCount(),
		MaxIdleDestroyCount:     raw.MaxIdleDestroyCount(),
	}

	log.Debug().
		Int32("total", stats.TotalConns).
		Int32("max", stats.MaxConns).
		Int32("acquired", stats.AcquiredConns).
		Int32("idle", stats.IdleConns).
		Int64("empty_acquires", stats.EmptyAcquireCount).
		Dur("avg_acquire", avgDuration(stats.AcquireDuration, stats.AcquireCount)).
		Msg("Pool statistics")

	return stats, nil
}

func avgDuration(total time.Duration, count int64) time.Duration {
	if count == 0 {
		return 0
	}
	return total / time.Duration(count)
}

// TxOptions mirrors the PostgreSQL transaction characteristics without
// leaking pgx types to callers.
type TxOptions struct {
	IsoLevel       TxIsoLevel
	AccessMode     TxAccessMode
	DeferrableMode TxDeferrableMode
}

type TxIsoLevel string

const (
	ReadCommitted  TxIsoLevel = "read committed"
	RepeatableRead TxIsoLevel = "repeatable read"
	Serializable   TxIsoLevel = "serializable"
)

type TxAccessMode string

const (
	ReadWrite TxAccessMode = "read write"
	ReadOnly  TxAccessMode = "read only"
)

// TxDeferrableMode is only meaningful for serializable read-only transactions.
type TxDeferrableMode string

const (
	NotDeferrable TxDeferrableMode = "not deferrable"
	Deferrable    TxDeferrableMode = "deferrable"
)

// BeginTx starts a transaction with the given characteristics. The caller
// must commit or roll back.
func (db *PostgresDB) BeginTx(ctx context.Context, opts *TxOptions) (pgx.Tx, error) {
	if db.Pool == nil {
		return nil, fmt.Errorf("database pool is not initialized")
	}

	pgxOpts := pgx.TxOptions{}
	if opts != nil {
		switch opts.IsoLevel {
		case RepeatableRead:
			pgxOpts.IsoLevel = pgx.RepeatableRead
		case Serializable:
			pgxOpts.IsoLevel = pgx.Serializable
		default:
			pgxOpts.IsoLevel = pgx.ReadCommitted
		}
		switch opts.AccessMode {
		case ReadOnly:
			pgxOpts.AccessMode = pgx.ReadOnly
		default:
			pgxOpts.AccessMode = pgx.ReadWrite
		}
		switch opts.DeferrableMode {
		case Deferrable:
			pgxOpts.DeferrableMode = pgx.Deferrable
		default:
			pgxOpts.DeferrableMode = pgx.NotDeferrable
		}
	}

	tx, err := db.Pool.BeginTx(ctx, pgxOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// ExecuteInTransaction runs fn inside a transaction, rolling back on error
// or panic and committing otherwise.
func (db *PostgresDB) ExecuteInTransaction(
	ctx context.Context,
	opts *TxOptions,
	fn func(tx pgx.Tx) error,
) error {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// MonitorPoolHealth logs pool statistics on the given interval until the
// context is done.
func (db *PostgresDB) MonitorPoolHealth(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if _, err := db.Stats(); err != nil {
				log.Warn().Err(err).Msg("Pool health check failed")
			}
		case <-ctx.Done():
			return
		}
	}
}
