// ABOUTME: Relay daemon serving now-playing state for configured stations
// ABOUTME: Loads config, starts stations, runs HTTP server with graceful shutdown
package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/harper/nowplaying-relay/internal/application/config"
	"github.com/harper/nowplaying-relay/internal/application/manager"
	"github.com/harper/nowplaying-relay/internal/infrastructure/http"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metadata"
	"github.com/harper/nowplaying-relay/internal/infrastructure/metrics"
)

const shutdownTimeout = 10 * time.Second

type ServeCmd struct {
	flags *Flags

	configPath string
}

// NewServeCmd creates a new serve command
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the now-playing relay",
		UsageText: "npfeed serve [--config path]",
		Description: `Follows every configured station and serves its state over HTTP.

Routes: /stations, /{station}/meta, /{station}/history, /{station}/events,
/{station}/cover, /healthz and /metrics.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("NPFEED_CONFIG"),
				Value:       "config.yaml",
				Destination: &cmd.configPath,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(cmd.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// The config file only sets the level when the flag was left alone.
	if !c.Root().IsSet("log-level") {
		if level, err := zerolog.ParseLevel(cfg.Logging.Level); err == nil {
			log.Logger = log.Logger.Level(level)
		}
	}
	if cfg.Logging.JSON {
		useJSONLogs()
	}

	collector := metrics.New()
	mgr, err := manager.NewFromConfig(cfg, manager.Options{
		Metrics: collector,
		Logger:  &log.Logger,
	})
	if err != nil {
		return fmt.Errorf("create manager: %w", err)
	}

	if err := mgr.Start(ctx); err != nil {
		return fmt.Errorf("start stations: %w", err)
	}

	display := metadata.BuildConfig{
		Format:              cfg.Display.Format,
		StripSingleQuotes:   cfg.Display.StripSingleQuotes,
		NormalizeWhitespace: cfg.Display.NormalizeWhitespace,
	}

	addr := cfg.Addr()
	srv := &nethttp.Server{
		Addr:              addr,
		Handler:           http.NewRouter(mgr, display, collector.Handler()),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      0, // event streams
		BaseContext: func(_ net.Listener) context.Context {
			return context.Background()
		},
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Graceful shutdown
	shutdown := make(chan error, 1)
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", addr).Int("stations", len(mgr.List())).Msgf("listening on http://%s (try /stations)", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		stop()
		<-shutdown
		_ = mgr.Shutdown()
		return fmt.Errorf("http server: %w", err)
	}

	if err := <-shutdown; err != nil {
		_ = mgr.Shutdown()
		return fmt.Errorf("shutdown: %w", err)
	}

	if err := mgr.Shutdown(); err != nil {
		return fmt.Errorf("shutdown stations: %w", err)
	}

	log.Info().Msg("shutdown complete")
	return nil
}
