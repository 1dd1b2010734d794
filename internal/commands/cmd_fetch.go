// ABOUTME: One-shot fetch of a station's static now-playing document
// ABOUTME: Prints the validated payload as a template line or JSON
package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
)

type FetchCmd struct {
	flags *Flags

	feed    feedFlags
	timeout time.Duration
}

// NewFetchCmd creates a new fetch command
func NewFetchCmd(flags *Flags) *FetchCmd {
	return &FetchCmd{flags: flags}
}

// Register adds the fetch command to the application
func (cmd *FetchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "fetch",
		Usage:     "Fetch a station's current now-playing payload once",
		UsageText: "npfeed fetch [options] STATION",
		Description: `Requests the static now-playing document of STATION and prints it.

The payload is validated before printing. Validation failures list each
offending field.`,
		Flags: append(cmd.feed.cliFlags(),
			&cli.DurationFlag{
				Name:        "timeout",
				Usage:       "request timeout",
				Value:       metadata.DefaultTimeout,
				Destination: &cmd.timeout,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *FetchCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one station id")
	}
	stationID := c.Args().First()

	client := metadata.NewHTTP(metadata.HTTPConfig{
		Host:    cmd.feed.host,
		Scheme:  cmd.feed.httpScheme(),
		Timeout: cmd.timeout,
		Logger:  &log.Logger,
	})

	np, err := client.Fetch(ctx, stationID)
	if err != nil {
		printIssues(c.Root().ErrWriter, err)
		return fmt.Errorf("fetch %s: %w", stationID, err)
	}

	return printPayload(c.Root().Writer, &cmd.feed, np)
}
