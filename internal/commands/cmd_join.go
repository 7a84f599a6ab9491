package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/hay-kot/hive-chat/internal/chatclient"
	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/internal/core/validate"
	"github.com/hay-kot/hive-chat/internal/printer"
	"github.com/hay-kot/hive-chat/internal/tui"
)

type JoinCmd struct {
	flags   *Flags
	plain   bool
	aiStyle string
}

// NewJoinCmd creates a new join command
func NewJoinCmd(flags *Flags) *JoinCmd {
	return &JoinCmd{flags: flags}
}

// Register adds the join command to the application
func (cmd *JoinCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "join",
		Usage:     "Join the chat as a user",
		UsageText: "hive-chat join [options] <username> <server_url>",
		Description: `Logs in and opens an interactive chat session.

Type a line to send it. Other commands:
  --active, --a    show active users
  --ai <query>     ask the AI assistant
  --exit, quit     leave the chat

A full-screen view is used when attached to a terminal; --plain forces line mode.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "plain",
				Usage:       "use line mode even on a terminal",
				Destination: &cmd.plain,
			},
			&cli.StringFlag{
				Name:        "ai-style",
				Usage:       "markdown style for AI answers (auto, dark, light, notty)",
				Value:       "auto",
				Destination: &cmd.aiStyle,
			},
		},
		Action: cmd.run,
	})

	return app
}

// joinArgs validates the positional arguments of join.
func joinArgs(args []string) (username, serverURL string, err error) {
	if len(args) != 2 {
		return "", "", errors.New("expected <username> <server_url>")
	}
	username, serverURL = args[0], args[1]
	if err := validate.Username(username); err != nil {
		return "", "", err
	}
	if serverURL == "" {
		return "", "", errors.New("server_url is required")
	}
	return username, serverURL, nil
}

func (cmd *JoinCmd) run(ctx context.Context, c *cli.Command) error {
	username, serverURL, err := joinArgs(c.Args().Slice())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !cmd.plain && term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))

	width := 80
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		width = w
	}
	style := cmd.aiStyle
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		style = "notty"
	}
	renderer, err := chatclient.NewRenderer(style, max(width-4, 20))
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}

	client := chatclient.New(serverURL, username, cmd.flags.Config.Client)
	if interactive {
		return cmd.runTUI(ctx, client, renderer)
	}
	return cmd.runLine(ctx, client, renderer)
}

func (cmd *JoinCmd) sessionOptions(deliver func(events []chat.Event)) chatclient.SessionOptions {
	return chatclient.SessionOptions{
		PollInterval:      cmd.flags.Config.Client.PollInterval,
		HeartbeatInterval: cmd.flags.Config.Client.HeartbeatInterval,
		Deliver:           deliver,
	}
}

func (cmd *JoinCmd) runLine(ctx context.Context, client *chatclient.Client, renderer *chatclient.Renderer) error {
	repl := chatclient.NewREPL(os.Stdin, os.Stdout, renderer)
	session := chatclient.NewSession(client, cmd.sessionOptions(repl.Deliver), log.With().Str("component", "session").Logger())

	welcome, err := session.Start(ctx)
	if err != nil {
		return fmt.Errorf("could not join %s: %w", client.Username(), err)
	}
	repl.Println(welcome)

	if err := repl.Run(ctx, session); err != nil {
		return err
	}
	printer.Ctx(ctx).Infof("Goodbye!")
	return nil
}

func (cmd *JoinCmd) runTUI(ctx context.Context, client *chatclient.Client, renderer *chatclient.Renderer) error {
	feed := tui.NewFeed(64)
	defer feed.Close()

	session := chatclient.NewSession(client, cmd.sessionOptions(feed.Deliver), log.With().Str("component", "session").Logger())

	welcome, err := session.Start(ctx)
	if err != nil {
		return fmt.Errorf("could not join %s: %w", client.Username(), err)
	}
	defer session.Stop(context.Background())

	perform := func(ctx context.Context, a chatclient.Action) (string, error) {
		return chatclient.Perform(ctx, client, renderer, a)
	}

	m := tui.New(client.Username(), perform, feed.Events(), welcome)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("run tui: %w", err)
	}

	printer.Ctx(ctx).Infof("Goodbye!")
	return nil
}
