package main

import (
	"errors"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/drivegate/internal/config"
	"github.com/tonimelisma/drivegate/internal/drive"
	"github.com/tonimelisma/drivegate/internal/server"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Long: `Run the HTTP gateway until SIGINT or SIGTERM.

The Fernet key is read from FERNET_API_KEY on every request. Editing the
config file changes the log level immediately; other settings need a restart.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("host", "", "listen host (overrides [server] host)")
	cmd.Flags().Int("port", 0, "listen port (overrides [server] port)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	if resolvedCfg == nil {
		return errors.New("no configuration loaded")
	}

	level := new(slog.LevelVar)
	logger := buildLogger(level)

	ctx := shutdownContext(cmd.Context(), logger)

	holder := config.NewHolder(resolvedCfg, resolvedPath)
	env, cli := resolvedEnv, resolvedCLI

	srv := newServer(holder.Config(), logger)

	watcher := &config.Watcher{
		Holder: holder,
		Reload: func() (*config.Config, error) { return config.Resolve(env, cli) },
		OnChange: func(old, cfg *config.Config) {
			level.Set(parseLevel(cfg.Logging.LogLevel))

			if changed := restartRequired(old, cfg); len(changed) > 0 {
				logger.Warn("config changes take effect after restart",
					slog.Any("sections", changed),
				)
			}
		},
		Logger: logger,
	}

	logger.Info("starting drivegate",
		slog.String("version", version),
		slog.String("addr", srv.Addr()),
		slog.String("config", holder.Path()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })

	return g.Wait()
}

// newServer wires the config into a session factory, upload slots and the
// HTTP server.
func newServer(cfg *config.Config, logger *slog.Logger) *server.Server {
	factory := &drive.SessionFactory{
		Scopes:          slices.Clone(cfg.Drive.Scopes),
		TokenURL:        cfg.Drive.TokenURL,
		Endpoint:        cfg.Drive.Endpoint,
		UploadChunkSize: cfg.Drive.UploadChunkBytes(),
		Logger:          logger,
	}

	read, write, idle, shutdown := cfg.Server.Timeouts()

	return server.New(server.Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     read,
		WriteTimeout:    write,
		IdleTimeout:     idle,
		ShutdownTimeout: shutdown,
		MaxUploadSize:   cfg.Server.MaxUploadBytes(),
		PageSize:        cfg.Drive.PageSize,
		TokenTTL:        cfg.Credentials.TTL(),
		Factory:         factory,
		Slots:           drive.NewUploadSlots(cfg.Upload.Workers, logger),
		Logger:          logger,
		Version:         version,
	})
}

// restartRequired names the sections whose changes a running server
// cannot pick up.
func restartRequired(old, cfg *config.Config) []string {
	var changed []string

	if old.Server != cfg.Server {
		changed = append(changed, "server")
	}

	od, nd := old.Drive, cfg.Drive
	if !slices.Equal(od.Scopes, nd.Scopes) || od.Endpoint != nd.Endpoint || od.TokenURL != nd.TokenURL ||
		od.PageSize != nd.PageSize || od.UploadChunkSize != nd.UploadChunkSize {
		changed = append(changed, "drive")
	}

	if old.Upload != cfg.Upload {
		changed = append(changed, "upload")
	}

	if old.Logging.LogFormat != cfg.Logging.LogFormat {
		changed = append(changed, "logging.log_format")
	}

	if old.Credentials != cfg.Credentials {
		changed = append(changed, "credentials")
	}

	return changed
}
