package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hive-chat/internal/chatclient"
	"github.com/hay-kot/hive-chat/internal/core/chat"
	"github.com/hay-kot/hive-chat/pkg/randid"
)

type TailCmd struct {
	flags      *Flags
	sinceNow   bool
	timestamps bool
}

// NewTailCmd creates a new tail command
func NewTailCmd(flags *Flags) *TailCmd {
	return &TailCmd{flags: flags}
}

// Register adds the tail command to the application
func (cmd *TailCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "tail",
		Usage:     "Follow the chat without joining",
		UsageText: "hive-chat tail [options] <server_url>",
		Description: `Prints the retained message log and then new events as they arrive.

Tail never logs in, so it does not appear in the active user list.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "since-now",
				Usage:       "skip the retained log and only print new events",
				Destination: &cmd.sinceNow,
			},
			&cli.BoolFlag{
				Name:        "timestamps",
				Aliases:     []string{"t"},
				Usage:       "prefix each event with its local time",
				Destination: &cmd.timestamps,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *TailCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return errors.New("expected <server_url>")
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cursor float64
	if cmd.sinceNow {
		cursor = chat.Timestamp(time.Now())
	}

	out := c.Root().Writer
	deliver := func(events []chat.Event) {
		for _, ev := range events {
			_, _ = fmt.Fprintln(out, cmd.format(ev))
		}
	}

	client := chatclient.New(c.Args().First(), randid.Name("tail", 6), cmd.flags.Config.Client)
	poller := chatclient.NewPoller(client, cmd.flags.Config.Client.PollInterval, cursor, deliver, log.With().Str("component", "tail").Logger())
	poller.Run(ctx.Done())

	return nil
}

func (cmd *TailCmd) format(ev chat.Event) string {
	line := chatclient.FormatEvent(ev)
	if cmd.timestamps {
		line = ev.Time().Local().Format(time.TimeOnly) + " " + line
	}
	return line
}
