// Package store opens the kv.Store backend selected in the configuration.
package store

import (
	"context"
	"fmt"

	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/core/kv"
	"github.com/hay-kot/hive-chat/internal/store/jsonfile"
	"github.com/hay-kot/hive-chat/internal/store/pgstore"
	"github.com/hay-kot/hive-chat/internal/store/redisstore"
)

// Open returns the configured backend. Remote backends are pinged before
// being returned.
func Open(ctx context.Context, cfg *config.Config) (kv.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendJSONFile, "":
		return jsonfile.NewKVStore(cfg.StorePath()), nil
	case config.BackendRedis:
		return redisstore.Open(ctx, cfg.Store.RedisURL)
	case config.BackendPostgres:
		return pgstore.Open(ctx, cfg.Store.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}
