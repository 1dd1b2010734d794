// ABOUTME: Shared CLI flags and helpers for npfeed commands
// ABOUTME: Holds global options and builds feed URLs from command flags
package commands

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"
)

const DefaultHost = "demo.azuracast.com"

type Flags struct {
	LogLevel string
	LogFile  string
}

// feedFlags are the connection options shared by fetch and watch.
type feedFlags struct {
	host     string
	insecure bool
	format   string
	json     bool
}

func (f *feedFlags) cliFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "host",
			Usage:       "AzuraCast host name",
			Sources:     cli.EnvVars("NPFEED_HOST"),
			Value:       DefaultHost,
			Destination: &f.host,
		},
		&cli.BoolFlag{
			Name:        "insecure",
			Usage:       "use http and ws instead of https and wss",
			Sources:     cli.EnvVars("NPFEED_INSECURE"),
			Destination: &f.insecure,
		},
		&cli.StringFlag{
			Name:        "format",
			Usage:       "line template ({artist} {title} {album} {station} {station_id} {playlist} {listeners})",
			Value:       "{artist} - {title}",
			Destination: &f.format,
		},
		&cli.BoolFlag{
			Name:        "json",
			Usage:       "print the full payload as JSON",
			Destination: &f.json,
		},
	}
}

func (f *feedFlags) httpScheme() string {
	if f.insecure {
		return "http"
	}
	return "https"
}

func (f *feedFlags) wsScheme() string {
	if f.insecure {
		return "ws"
	}
	return "wss"
}

// useJSONLogs switches the global logger to JSON lines on stderr, keeping
// the current level.
func useJSONLogs() {
	level := log.Logger.GetLevel()
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(level)
}
