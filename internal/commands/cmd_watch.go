// ABOUTME: Live subscription to a station's now-playing feed
// ABOUTME: Prints every validated update until interrupted or a count is reached
package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/harper/nowplaying-relay/internal/domain/nowplaying"
	"github.com/harper/nowplaying-relay/internal/domain/session"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
	"github.com/harper/nowplaying-relay/internal/infrastructure/websocket"
)

type WatchCmd struct {
	flags *Flags

	feed      feedFlags
	count     int
	prime     bool
	reconnect time.Duration
}

// NewWatchCmd creates a new watch command
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Follow a station's live now-playing feed",
		UsageText: "npfeed watch [options] STATION",
		Description: `Subscribes to STATION over the push websocket and prints each update.

The connection is re-established after a drop. Feed errors are logged and
do not end the command.`,
		Flags: append(cmd.feed.cliFlags(),
			&cli.IntFlag{
				Name:        "count",
				Aliases:     []string{"n"},
				Usage:       "exit after this many updates (0 runs until interrupted)",
				Destination: &cmd.count,
			},
			&cli.BoolFlag{
				Name:        "prime",
				Usage:       "print the static document before the first push",
				Destination: &cmd.prime,
			},
			&cli.DurationFlag{
				Name:        "reconnect",
				Usage:       "delay before reconnecting after a drop",
				Value:       session.DefaultReconnectDelay,
				Destination: &cmd.reconnect,
			},
		),
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected exactly one station id")
	}
	stationID := c.Args().First()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := c.Root().Writer
	seen := 0
	done := func() bool { return cmd.count > 0 && seen >= cmd.count }

	if cmd.prime {
		client := metadata.NewHTTP(metadata.HTTPConfig{
			Host:   cmd.feed.host,
			Scheme: cmd.feed.httpScheme(),
			Logger: &log.Logger,
		})
		np, err := client.Fetch(ctx, stationID)
		if err != nil {
			log.Warn().Err(err).Str("station", stationID).Msg("prime failed")
		} else {
			if err := printPayload(out, &cmd.feed, np); err != nil {
				return err
			}
			seen++
			if done() {
				return nil
			}
		}
	}

	updates := make(chan *nowplaying.NowPlaying, 16)
	sess := session.New(session.Config{
		Host:           cmd.feed.host,
		Scheme:         cmd.feed.wsScheme(),
		Dialer:         websocket.NewDialer(websocket.Config{Logger: &log.Logger}),
		ReconnectDelay: cmd.reconnect,
		Logger:         &log.Logger,
	})
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn().Err(err).Msg("close session")
		}
	}()

	sess.OnUpdate(func(np *nowplaying.NowPlaying) {
		select {
		case updates <- np:
		default:
			log.Warn().Str("station", stationID).Msg("output behind, update dropped")
		}
	})
	sess.OnError(func(err error) {
		log.Warn().Err(err).Str("kind", nowplaying.KindOf(err)).Msg("feed error")
	})
	sess.SetChannel(stationID)

	log.Info().Str("station", stationID).Str("host", cmd.feed.host).Msg("watching")

	for {
		select {
		case <-ctx.Done():
			return nil
		case np := <-updates:
			if err := printPayload(out, &cmd.feed, np); err != nil {
				return err
			}
			seen++
			if done() {
				return nil
			}
		}
	}
}
