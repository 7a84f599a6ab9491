// Package pgstore implements kv.Store on PostgreSQL.
//
// Hashes live in kv_hash and lists in kv_list. List order comes from a
// monotonically increasing sequence, newest first. Batches run in a single
// transaction holding advisory locks on every key they touch.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv_hash (
	key   TEXT NOT NULL,
	field TEXT NOT NULL,
	value TEXT NOT NULL,
	PRIMARY KEY (key, field)
);
CREATE TABLE IF NOT EXISTS kv_list (
	key   TEXT   NOT NULL,
	seq   BIGSERIAL,
	value TEXT   NOT NULL,
	PRIMARY KEY (key, seq)
);`

// Store is a PostgreSQL-backed kv.Store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and ensures the schema exists.
func Open(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}

	s := &Store{pool: pool}
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates the backing tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM kv_hash WHERE key = $1 AND field = $2)`,
		key, field,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("hexists %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT field, value FROM kv_hash WHERE key = $1`, key)
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var field, value string
		if err := rows.Scan(&field, &value); err != nil {
			return nil, fmt.Errorf("hgetall %s: %w", key, err)
		}
		out[field] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return out, nil
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	var vals []string
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		n, err := listLen(ctx, tx, key)
		if err != nil {
			return err
		}
		lo, hi := kv.NormalizeRange(start, stop, n)
		if lo == hi {
			return nil
		}

		rows, err := tx.Query(ctx,
			`SELECT value FROM kv_list WHERE key = $1 ORDER BY seq DESC OFFSET $2 LIMIT $3`,
			key, lo, hi-lo,
		)
		if err != nil {
			return err
		}
		vals, err = pgx.CollectRows(rows, pgx.RowTo[string])
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	if vals == nil {
		vals = []string{}
	}
	return vals, nil
}

// Exec applies the batch in one transaction. Advisory locks on the touched
// keys are taken in sorted order so concurrent batches never deadlock.
func (s *Store) Exec(ctx context.Context, b kv.Batch) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, key := range lockKeys(b) {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, key); err != nil {
				return err
			}
		}

		if c := b.Cond; c != nil {
			var exists bool
			err := tx.QueryRow(ctx,
				`SELECT EXISTS (SELECT 1 FROM kv_hash WHERE key = $1 AND field = $2)`,
				c.Key, c.Field,
			).Scan(&exists)
			if err != nil {
				return err
			}
			if exists != c.Exists {
				return kv.ErrConditionFailed
			}
		}

		for _, op := range b.Ops {
			if err := apply(ctx, tx, op); err != nil {
				return fmt.Errorf("%s %s: %w", op.Kind, op.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, kv.ErrConditionFailed) {
			return err
		}
		return fmt.Errorf("exec: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	var one int
	if err := s.pool.QueryRow(ctx, "select 1").Scan(&one); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func apply(ctx context.Context, tx pgx.Tx, op kv.Op) error {
	var err error
	switch op.Kind {
	case kv.OpHSet:
		_, err = tx.Exec(ctx,
			`INSERT INTO kv_hash (key, field, value) VALUES ($1, $2, $3)
			 ON CONFLICT (key, field) DO UPDATE SET value = EXCLUDED.value`,
			op.Key, op.Field, op.Value,
		)
	case kv.OpHDel:
		_, err = tx.Exec(ctx, `DELETE FROM kv_hash WHERE key = $1 AND field = $2`, op.Key, op.Field)
	case kv.OpLPush:
		_, err = tx.Exec(ctx, `INSERT INTO kv_list (key, value) VALUES ($1, $2)`, op.Key, op.Value)
	case kv.OpLTrim:
		err = trim(ctx, tx, op)
	default:
		err = errors.New("unsupported op")
	}
	return err
}

// trim keeps positions [lo, hi) counted from the head (newest) and deletes the rest.
func trim(ctx context.Context, tx pgx.Tx, op kv.Op) error {
	n, err := listLen(ctx, tx, op.Key)
	if err != nil {
		return err
	}
	lo, hi := kv.NormalizeRange(op.Start, op.Stop, n)
	if lo == hi {
		_, err = tx.Exec(ctx, `DELETE FROM kv_list WHERE key = $1`, op.Key)
		return err
	}

	_, err = tx.Exec(ctx, `
		DELETE FROM kv_list
		WHERE key = $1 AND seq NOT IN (
			SELECT seq FROM kv_list WHERE key = $1 ORDER BY seq DESC OFFSET $2 LIMIT $3
		)`,
		op.Key, lo, hi-lo,
	)
	return err
}

func listLen(ctx context.Context, tx pgx.Tx, key string) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT count(*) FROM kv_list WHERE key = $1`, key).Scan(&n)
	return n, err
}

func lockKeys(b kv.Batch) []string {
	keys := make([]string, 0, len(b.Ops)+1)
	if b.Cond != nil {
		keys = append(keys, b.Cond.Key)
	}
	for _, op := range b.Ops {
		keys = append(keys, op.Key)
	}
	slices.Sort(keys)
	return slices.Compact(keys)
}
