package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/hay-kot/criterio"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hive-chat/internal/core/config"
	"github.com/hay-kot/hive-chat/internal/printer"
)

type ConfigValidateCmd struct {
	flags  *Flags
	format string
	strict bool
}

// NewConfigValidateCmd creates a new config validate command.
func NewConfigValidateCmd(flags *Flags) *ConfigValidateCmd {
	return &ConfigValidateCmd{flags: flags}
}

// Register adds the config validate command to the application.
func (cmd *ConfigValidateCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Commands: []*cli.Command{
			{
				Name:      "validate",
				Usage:     "Validate configuration and print the effective settings",
				UsageText: "hive-chat config validate [options]",
				Description: `Checks the chat configuration: store backend and connection string, presence
timeout against the heartbeat interval, message log bound, client timeouts and
the AI upstream URL. Store credentials are redacted from the output.`,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Usage:       "output format (text, json)",
						Value:       "text",
						Destination: &cmd.format,
					},
					&cli.BoolFlag{
						Name:        "strict",
						Usage:       "treat warnings as errors",
						Destination: &cmd.strict,
					},
				},
				Action: cmd.run,
			},
		},
	})

	return app
}

// report is the outcome of a validation run, shared by both output formats.
type report struct {
	Valid    bool                       `json:"valid"`
	Settings []setting                  `json:"settings"`
	Errors   []problem                  `json:"errors,omitempty"`
	Warnings []config.ValidationWarning `json:"warnings,omitempty"`
}

type setting struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type problem struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (cmd *ConfigValidateCmd) run(ctx context.Context, c *cli.Command) error {
	cfg := cmd.flags.Config
	if cfg == nil {
		return fmt.Errorf("configuration not loaded")
	}

	r := buildReport(cfg, cfg.ValidateDeep(cmd.flags.ConfigPath), cfg.Warnings(), cmd.strict)

	if cmd.format == "json" {
		enc := json.NewEncoder(c.Root().Writer)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return err
		}
	} else {
		r.print(printer.Ctx(ctx))
	}

	if !r.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func buildReport(cfg *config.Config, err error, warnings []config.ValidationWarning, strict bool) report {
	r := report{Settings: effectiveSettings(cfg)}

	var fieldErrs criterio.FieldErrors
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		for _, fe := range fieldErrs {
			r.Errors = append(r.Errors, problem{Field: fe.Field, Message: fe.Err.Error()})
		}
	default:
		r.Errors = append(r.Errors, problem{Message: err.Error()})
	}

	if strict {
		for _, w := range warnings {
			field := w.Item
			if field == "" {
				field = strings.ToLower(w.Category)
			}
			r.Errors = append(r.Errors, problem{Field: field, Message: w.Message})
		}
	} else {
		r.Warnings = warnings
	}

	r.Valid = len(r.Errors) == 0
	return r
}

func effectiveSettings(cfg *config.Config) []setting {
	target := cfg.StorePath()
	switch cfg.Store.Backend {
	case config.BackendRedis:
		target = redactDSN(cfg.Store.RedisURL)
	case config.BackendPostgres:
		target = redactDSN(cfg.Store.PostgresDSN)
	}

	upstream := "disabled"
	if cfg.AI.UpstreamURL != "" {
		upstream = redactDSN(cfg.AI.UpstreamURL)
	}

	return []setting{
		{"store", cfg.Store.Backend + " " + target},
		{"listen", cfg.Server.Addr},
		{"user timeout", cfg.Chat.UserTimeout().String()},
		{"max messages", strconv.Itoa(cfg.Chat.MaxMessages)},
		{"poll interval", cfg.Client.PollInterval.String()},
		{"heartbeat interval", cfg.Client.HeartbeatInterval.String()},
		{"ai upstream", upstream},
	}
}

var dsnPassword = regexp.MustCompile(`(password\s*=\s*)('[^']*'|\S+)`)

// redactDSN masks the password of a URL or a libpq key=value connection string.
func redactDSN(dsn string) string {
	if u, err := url.Parse(dsn); err == nil && u.Scheme != "" && u.Host != "" {
		return u.Redacted()
	}
	return dsnPassword.ReplaceAllString(dsn, "${1}xxxxx")
}

func (r report) print(p *printer.Printer) {
	p.Section("Settings")
	for _, s := range r.Settings {
		p.KeyValue(s.Key, s.Value)
	}

	if len(r.Errors) > 0 || len(r.Warnings) > 0 {
		p.Printf("")
		p.Section("Problems")
		for _, e := range r.Errors {
			field := e.Field
			if field == "" {
				field = "config"
			}
			p.FailItem(field, e.Message)
		}
		for _, w := range r.Warnings {
			label := w.Category
			if w.Item != "" {
				label += " " + w.Item
			}
			p.WarnItem(label, w.Message)
		}
	}

	p.Printf("")
	if r.Valid {
		p.Successf("Configuration is valid (%d warning(s))", len(r.Warnings))
		return
	}
	p.Errorf("%d error(s), %d warning(s)", len(r.Errors), len(r.Warnings))
}
