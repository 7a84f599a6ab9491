package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/hive"
	"github.com/hay-kot/hive-chat/internal/store"
	transporthttp "github.com/hay-kot/hive-chat/internal/transport/http"
)

type ServeCmd struct {
	flags *Flags

	addr        string
	backend     string
	redisURL    string
	postgresDSN string
	aiUpstream  string
	userTimeout int
	maxMessages int
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the chat server",
		UsageText: "hive-chat serve [options]",
		Description: `Serves the chat API backed by the configured store.

Any number of servers may share one store; they hold no chat state of their own.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address (overrides server.addr)",
				Sources:     cli.EnvVars("HIVE_CHAT_ADDR"),
				Destination: &cmd.addr,
			},
			&cli.StringFlag{
				Name:        "store",
				Usage:       "store backend: jsonfile, redis or postgres (overrides store.backend)",
				Sources:     cli.EnvVars("HIVE_CHAT_STORE"),
				Destination: &cmd.backend,
			},
			&cli.StringFlag{
				Name:        "redis-url",
				Usage:       "redis connection URL (overrides store.redis_url)",
				Sources:     cli.EnvVars("HIVE_CHAT_REDIS_URL"),
				Destination: &cmd.redisURL,
			},
			&cli.StringFlag{
				Name:        "postgres-dsn",
				Usage:       "postgres connection string (overrides store.postgres_dsn)",
				Sources:     cli.EnvVars("HIVE_CHAT_POSTGRES_DSN"),
				Destination: &cmd.postgresDSN,
			},
			&cli.StringFlag{
				Name:        "ai-upstream",
				Usage:       "URL that receives AI queries (overrides ai.upstream_url)",
				Sources:     cli.EnvVars("HIVE_CHAT_AI_UPSTREAM"),
				Destination: &cmd.aiUpstream,
			},
			&cli.IntFlag{
				Name:        "user-timeout",
				Usage:       "seconds without a heartbeat before a user is inactive",
				Sources:     cli.EnvVars("USER_TIMEOUT_SECONDS"),
				Destination: &cmd.userTimeout,
			},
			&cli.IntFlag{
				Name:        "max-messages",
				Usage:       "number of messages retained in the shared log",
				Sources:     cli.EnvVars("MAX_MESSAGES"),
				Destination: &cmd.maxMessages,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, _ *cli.Command) error {
	cfg := cmd.flags.Config
	cmd.applyOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	kvStore, err := store.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() { _ = kvStore.Close() }()

	log.Info().
		Str("backend", cfg.Store.Backend).
		Int("max_messages", cfg.Chat.MaxMessages).
		Dur("user_timeout", cfg.Chat.UserTimeout()).
		Msg("store ready")

	svc := hive.New(kvStore, cfg, log.With().Str("component", "hive").Logger())
	srv, err := transporthttp.NewServer(svc, cfg, log.With().Str("component", "http").Logger())
	if err != nil {
		return err
	}

	return srv.ListenAndServe(ctx)
}

// applyOverrides copies flags that were set onto the loaded config.
func (cmd *ServeCmd) applyOverrides(cfg *config.Config) {
	if cmd.addr != "" {
		cfg.Server.Addr = cmd.addr
	}
	if cmd.backend != "" {
		cfg.Store.Backend = cmd.backend
	}
	if cmd.redisURL != "" {
		cfg.Store.RedisURL = cmd.redisURL
	}
	if cmd.postgresDSN != "" {
		cfg.Store.PostgresDSN = cmd.postgresDSN
	}
	if cmd.aiUpstream != "" {
		cfg.AI.UpstreamURL = cmd.aiUpstream
	}
	if cmd.userTimeout != 0 {
		cfg.Chat.UserTimeoutSeconds = cmd.userTimeout
	}
	if cmd.maxMessages != 0 {
		cfg.Chat.MaxMessages = cmd.maxMessages
	}
}
