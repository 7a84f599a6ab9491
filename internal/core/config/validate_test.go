package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(errs criterio.FieldErrors) []string {
	names := make([]string, 0, len(errs))
	for _, fe := range errs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig(t)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_ReportsAllFields(t *testing.T) {
	cfg := validConfig(t)
	cfg.DataDir = ""
	cfg.Chat.MaxMessages = 0
	cfg.Chat.UserTimeoutSeconds = -1
	cfg.Client.PollInterval = 0
	cfg.Store.Backend = "etcd"

	err := cfg.Validate()

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)

	names := fieldNames(fieldErrs)
	assert.Contains(t, names, "data_dir")
	assert.Contains(t, names, "chat.max_messages")
	assert.Contains(t, names, "chat.user_timeout_seconds")
	assert.Contains(t, names, "client.poll_interval")
	assert.Contains(t, names, "store.backend")
}

func TestValidate_BackendRequirements(t *testing.T) {
	tests := []struct {
		name    string
		backend string
		field   string
	}{
		{"redis needs url", BackendRedis, "store.redis_url"},
		{"postgres needs dsn", BackendPostgres, "store.postgres_dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			cfg.Store.Backend = tt.backend

			var fieldErrs criterio.FieldErrors
			require.ErrorAs(t, cfg.Validate(), &fieldErrs)
			assert.Equal(t, []string{tt.field}, fieldNames(fieldErrs))
		})
	}
}

func TestValidate_HeartbeatMustBeatTimeout(t *testing.T) {
	cfg := validConfig(t)
	cfg.Client.HeartbeatInterval = 30 * time.Second

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.Validate(), &fieldErrs)
	assert.Equal(t, []string{"client.heartbeat_interval"}, fieldNames(fieldErrs))
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, 50, cfg.Chat.MaxMessages)
	assert.Equal(t, 30*time.Second, cfg.Chat.UserTimeout())
	assert.Equal(t, 2*time.Second, cfg.Client.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Client.HeartbeatInterval)
	assert.Equal(t, 10*time.Second, cfg.Client.CommandTimeout)
	assert.Equal(t, 30*time.Second, cfg.Client.PollTimeout)
	assert.Equal(t, 45*time.Second, cfg.Client.AITimeout)
	assert.Equal(t, filepath.Join(dataDir, "chat.json"), cfg.StorePath())
}

func TestLoad_FileOverridesAndDefaultsFillGaps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
chat:
  max_messages: 10
client:
  poll_interval: 500ms
store:
  backend: redis
  redis_url: redis://localhost:6379/0
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Chat.MaxMessages)
	assert.Equal(t, 30, cfg.Chat.UserTimeoutSeconds)
	assert.Equal(t, 500*time.Millisecond, cfg.Client.PollInterval)
	assert.Equal(t, 15*time.Second, cfg.Client.HeartbeatInterval)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chat: [unclosed"), 0o644))

	_, err := Load(path, dir)
	assert.ErrorContains(t, err, "parse config file")
}

func TestRead_InvalidValuesLoadButFailValidation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  backend: redis\n"), 0o644))

	cfg, err := Read(path, dir)
	require.NoError(t, err)
	assert.Equal(t, BackendRedis, cfg.Store.Backend)
	assert.Error(t, cfg.Validate())

	_, err = Load(path, dir)
	assert.ErrorContains(t, err, "store.redis_url")
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.AI.UpstreamURL = "https://ai.example.com/v1/query"
	cfg.Store.RedisURL = "redis://localhost:6379"
	cfg.Store.PostgresDSN = "host=localhost user=chat dbname=chat"

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidateDeep_InvalidURLs(t *testing.T) {
	cfg := validConfig(t)
	cfg.AI.UpstreamURL = "ftp://ai.example.com"
	cfg.Store.RedisURL = "http://localhost:6379"
	cfg.Store.PostgresDSN = "mysql://localhost/chat"

	err := cfg.ValidateDeep("")

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	assert.ElementsMatch(t,
		[]string{"ai.upstream_url", "store.redis_url", "store.postgres_dsn"},
		fieldNames(fieldErrs),
	)
}

func TestValidateDeep_ConfigPathIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, cfg.ValidateDeep(t.TempDir()), &fieldErrs)
	assert.Equal(t, []string{"config"}, fieldNames(fieldErrs))
	assert.Contains(t, fieldErrs[0].Err.Error(), "is a directory")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)

	categories := func(ws []ValidationWarning) []string {
		out := make([]string, 0, len(ws))
		for _, w := range ws {
			out = append(out, w.Category)
		}
		return out
	}

	assert.ElementsMatch(t, []string{"Store", "AI"}, categories(cfg.Warnings()))

	cfg.Store.Backend = BackendRedis
	cfg.Store.RedisURL = "redis://localhost:6379"
	cfg.AI.UpstreamURL = "https://ai.example.com"
	cfg.Client.HeartbeatInterval = 20 * time.Second
	cfg.Chat.MaxMessages = 5000

	assert.ElementsMatch(t, []string{"Presence", "Chat"}, categories(cfg.Warnings()))
}
