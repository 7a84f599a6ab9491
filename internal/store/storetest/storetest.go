// Package storetest provides a contract test suite for kv.Store implementations.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/hive-chat/internal/core/kv"
)

// Factory returns a fresh, empty store for a single subtest.
type Factory func(t *testing.T) kv.Store

// Run exercises the kv.Store contract against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("hash set get delete", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		ok, err := store.HExists(ctx, "clients", "alice")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, store.Exec(ctx, kv.Batch{Ops: []kv.Op{
			kv.HSet("clients", "alice", "1"),
			kv.HSet("clients", "bob", "2"),
		}}))

		ok, err = store.HExists(ctx, "clients", "alice")
		require.NoError(t, err)
		assert.True(t, ok)

		all, err := store.HGetAll(ctx, "clients")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"alice": "1", "bob": "2"}, all)

		require.NoError(t, store.Exec(ctx, kv.Batch{Ops: []kv.Op{kv.HDel("clients", "alice")}}))
		require.NoError(t, store.Exec(ctx, kv.Batch{Ops: []kv.Op{kv.HDel("clients", "nobody")}}))

		all, err = store.HGetAll(ctx, "clients")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"bob": "2"}, all)
	})

	t.Run("missing keys read empty", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		all, err := store.HGetAll(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, all)

		list, err := store.LRange(ctx, "nothing", 0, -1)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("list push is head first", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, v := range []string{"a", "b", "c"} {
			require.NoError(t, store.Exec(ctx, kv.Batch{Ops: []kv.Op{kv.LPush("l", v)}}))
		}

		list, err := store.LRange(ctx, "l", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b", "a"}, list)

		list, err = store.LRange(ctx, "l", 0, 1)
		require.NoError(t, err)
		assert.Equal(t, []string{"c", "b"}, list)
	})

	t.Run("push and trim bound the list", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()
		const limit = 5

		for i := range 12 {
			require.NoError(t, store.Exec(ctx, kv.Batch{Ops: []kv.Op{
				kv.LPush("l", fmt.Sprint(i)),
				kv.LTrim("l", 0, limit-1),
			}}))

			list, err := store.LRange(ctx, "l", 0, -1)
			require.NoError(t, err)
			assert.LessOrEqual(t, len(list), limit)
		}

		list, err := store.LRange(ctx, "l", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"11", "10", "9", "8", "7"}, list)
	})

	t.Run("condition absent", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		b := kv.Batch{
			Cond: kv.FieldAbsent("clients", "alice"),
			Ops: []kv.Op{
				kv.HSet("clients", "alice", "1"),
				kv.LPush("messages", "joined"),
			},
		}

		require.NoError(t, store.Exec(ctx, b))
		err := store.Exec(ctx, b)
		require.ErrorIs(t, err, kv.ErrConditionFailed)

		list, err := store.LRange(ctx, "messages", 0, -1)
		require.NoError(t, err)
		assert.Equal(t, []string{"joined"}, list, "failed batch must not apply any op")
	})

	t.Run("condition exists", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		b := kv.Batch{
			Cond: kv.FieldExists("clients", "ghost"),
			Ops:  []kv.Op{kv.HSet("clients", "ghost", "1")},
		}

		err := store.Exec(ctx, b)
		require.ErrorIs(t, err, kv.ErrConditionFailed)

		ok, err := store.HExists(ctx, "clients", "ghost")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("concurrent conditional writes admit one winner", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		const workers = 8
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			wins int
		)

		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Exec(ctx, kv.Batch{
					Cond: kv.FieldAbsent("clients", "same"),
					Ops: []kv.Op{
						kv.HSet("clients", "same", fmt.Sprint(i)),
						kv.LPush("messages", fmt.Sprint(i)),
					},
				})
				if err == nil {
					mu.Lock()
					wins++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 1, wins)

		list, err := store.LRange(ctx, "messages", 0, -1)
		require.NoError(t, err)
		assert.Len(t, list, 1)
	})

	t.Run("ping", func(t *testing.T) {
		store := newStore(t)
		assert.NoError(t, store.Ping(context.Background()))
	})
}
