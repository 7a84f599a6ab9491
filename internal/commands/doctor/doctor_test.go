package doctor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/core/kv"
	"github.com/hay-kot/hive-chat/internal/store/jsonfile"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func statuses(r Result) []Status {
	out := make([]Status, 0, len(r.Items))
	for _, it := range r.Items {
		out = append(out, it.Status)
	}
	return out
}

func TestConfigCheck(t *testing.T) {
	cfg := testConfig(t)
	r := NewConfigCheck(cfg, "").Run(context.Background())

	require.NotEmpty(t, r.Items)
	assert.Equal(t, StatusPass, r.Items[0].Status)
	assert.Contains(t, statuses(r), StatusWarn)

	cfg.Chat.MaxMessages = 0
	r = NewConfigCheck(cfg, "").Run(context.Background())
	assert.Contains(t, statuses(r), StatusFail)

	r = NewConfigCheck(nil, "").Run(context.Background())
	assert.Equal(t, []Status{StatusFail}, statuses(r))
}

func TestStoreCheck(t *testing.T) {
	cfg := testConfig(t)
	open := func(context.Context, *config.Config) (kv.Store, error) {
		return jsonfile.NewKVStore(filepath.Join(cfg.DataDir, "chat.json")), nil
	}

	r := NewStoreCheck(cfg, open).Run(context.Background())
	assert.Equal(t, []Status{StatusPass, StatusPass, StatusPass}, statuses(r))
	assert.Equal(t, "0/50 retained", r.Items[1].Detail)
	assert.Equal(t, "0 registered, 0 active within 30s", r.Items[2].Detail)
}

func TestStoreCheck_User(t *testing.T) {
	cfg := testConfig(t)
	store := jsonfile.NewKVStore(filepath.Join(cfg.DataDir, "chat.json"))
	open := func(context.Context, *config.Config) (kv.Store, error) { return store, nil }

	ctx := context.Background()
	registry := chat.NewRegistry(store, chat.NewLog(store, cfg.Chat.MaxMessages), cfg.Chat.UserTimeout())
	require.NoError(t, registry.Login(ctx, "alice"))

	stale := chat.NewRegistry(store, chat.NewLog(store, cfg.Chat.MaxMessages), cfg.Chat.UserTimeout()).
		WithClock(func() time.Time { return time.Now().Add(-time.Hour) })
	require.NoError(t, stale.Login(ctx, "carol"))

	tests := []struct {
		user   string
		status Status
		detail string
	}{
		{"alice", StatusPass, "registered and active"},
		{"carol", StatusWarn, "registered but inactive"},
		{"bob", StatusPass, "not registered"},
	}

	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			r := NewStoreCheck(cfg, open).WithUser(tt.user).Run(ctx)
			require.Len(t, r.Items, 4)
			assert.Equal(t, "2 registered, 1 active within 30s", r.Items[2].Detail)

			item := r.Items[3]
			assert.Equal(t, "User "+tt.user, item.Label)
			assert.Equal(t, tt.status, item.Status)
			assert.Contains(t, item.Detail, tt.detail)
		})
	}
}

func TestStoreCheck_OpenFails(t *testing.T) {
	open := func(context.Context, *config.Config) (kv.Store, error) {
		return nil, errors.New("dial tcp: connection refused")
	}

	r := NewStoreCheck(testConfig(t), open).Run(context.Background())
	assert.Equal(t, []Status{StatusFail}, statuses(r))
}

func TestServerCheck(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "KV store not available", http.StatusServiceUnavailable)
	})
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	results := RunAll(context.Background(), time.Second, []Check{NewServerCheck(ts.URL + "/")})
	require.Len(t, results, 1)
	assert.Equal(t, []Status{StatusPass, StatusFail}, statuses(results[0]))
	assert.Equal(t, "fail", results[0].Items[1].StatusStr)

	passed, warned, failed := Summary(results)
	assert.Equal(t, [3]int{1, 0, 1}, [3]int{passed, warned, failed})
}
