// Package redisstore implements kv.Store on top of Redis.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// maxRetries bounds optimistic-lock retries for conditional batches.
const maxRetries = 32

// Store is a Redis-backed kv.Store.
type Store struct {
	client *redis.Client
}

// Open parses a redis:// URL and connects.
func Open(ctx context.Context, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	s := New(redis.NewClient(opts))
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an existing client.
func New(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) HExists(ctx context.Context, key, field string) (bool, error) {
	ok, err := s.client.HExists(ctx, key, field).Result()
	if err != nil {
		return false, fmt.Errorf("hexists %s: %w", key, err)
	}
	return ok, nil
}

func (s *Store) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	m, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", key, err)
	}
	return m, nil
}

func (s *Store) LRange(ctx context.Context, key string, start, stop int) ([]string, error) {
	vals, err := s.client.LRange(ctx, key, int64(start), int64(stop)).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}
	return vals, nil
}

// Exec runs the batch inside MULTI/EXEC. A conditional batch WATCHes the
// condition key and is retried when a concurrent writer invalidates it.
func (s *Store) Exec(ctx context.Context, b kv.Batch) error {
	if b.Cond == nil {
		_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queue(ctx, pipe, b.Ops)
		})
		if err != nil {
			return fmt.Errorf("exec: %w", err)
		}
		return nil
	}

	cond := *b.Cond
	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, cond.Key, cond.Field).Result()
		if err != nil {
			return err
		}
		if exists != cond.Exists {
			return kv.ErrConditionFailed
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return queue(ctx, pipe, b.Ops)
		})
		return err
	}

	for range maxRetries {
		err := s.client.Watch(ctx, txf, cond.Key)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, kv.ErrConditionFailed):
			return err
		case errors.Is(err, redis.TxFailedErr):
			continue
		default:
			return fmt.Errorf("exec: %w", err)
		}
	}

	return fmt.Errorf("exec: %w after %d attempts", redis.TxFailedErr, maxRetries)
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

func queue(ctx context.Context, pipe redis.Pipeliner, ops []kv.Op) error {
	for _, op := range ops {
		switch op.Kind {
		case kv.OpHSet:
			pipe.HSet(ctx, op.Key, op.Field, op.Value)
		case kv.OpHDel:
			pipe.HDel(ctx, op.Key, op.Field)
		case kv.OpLPush:
			pipe.LPush(ctx, op.Key, op.Value)
		case kv.OpLTrim:
			pipe.LTrim(ctx, op.Key, int64(op.Start), int64(op.Stop))
		default:
			return fmt.Errorf("unsupported op %s", op.Kind)
		}
	}
	return nil
}
