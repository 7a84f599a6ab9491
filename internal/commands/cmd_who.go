package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/hay-kot/hive-chat/internal/chatclient"
	"github.com/hay-kot/hive-chat/internal/core/validate"
	"github.com/hay-kot/hive-chat/pkg/randid"
)

type WhoCmd struct {
	flags *Flags
	as    string
}

// NewWhoCmd creates a new who command
func NewWhoCmd(flags *Flags) *WhoCmd {
	return &WhoCmd{flags: flags}
}

// Register adds the who command to the application
func (cmd *WhoCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "who",
		Usage:       "List active users",
		UsageText:   "hive-chat who [options] <server_url>",
		Description: "Prints the users seen within the presence timeout. Does not log in.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "as",
				Usage:       "username sent with the query (default: random observer name)",
				Destination: &cmd.as,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WhoCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return errors.New("expected <server_url>")
	}
	if cmd.as == "" {
		cmd.as = randid.Name("observer", 6)
	}
	if err := validate.Username(cmd.as); err != nil {
		return fmt.Errorf("--as: %w", err)
	}

	client := chatclient.New(c.Args().First(), cmd.as, cmd.flags.Config.Client)
	box, err := client.Active(ctx)
	if err != nil {
		return fmt.Errorf("query active users: %w", err)
	}

	_, _ = fmt.Fprintln(c.Root().Writer, box)
	return nil
}
