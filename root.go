package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/drivegate/internal/config"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagVerbose    bool
	flagDebug      bool
	flagQuiet      bool
)

// Effective configuration loaded by PersistentPreRunE, plus the inputs it
// was resolved from so the serve command can re-resolve on file change.
var (
	resolvedCfg  *config.Config
	resolvedPath string
	resolvedEnv  config.EnvOverrides
	resolvedCLI  config.CLIOverrides
)

// dotenvFile is loaded from the working directory before any command runs.
const dotenvFile = ".env"

// skipConfigCommands lists commands that never read the config file. Token
// commands only need the Fernet key, so a broken config must not block them.
// Uses CommandPath() so a future "config seal" is not skipped by accident.
var skipConfigCommands = map[string]bool{
	"drivegate token":        true,
	"drivegate token keygen": true,
	"drivegate token seal":   true,
	"drivegate token open":   true,
}

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "drivegate",
		Short:   "HTTP gateway to Google Drive",
		Long:    "Serves a small REST API over Google Drive, authenticated by sealed service-account tokens.",
		Version: version,
		// Errors are printed once, by main.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadDotenv(dotenvFile); err != nil {
				return err
			}

			if skipConfigCommands[cmd.CommandPath()] {
				return nil
			}

			return loadConfig(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable info logging")
	cmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "log errors only")
	cmd.MarkFlagsMutuallyExclusive("verbose", "debug", "quiet")

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newTokenCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadDotenv exports the variables of a .env file that are not already set.
// A missing file is not an error.
func loadDotenv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", path, err)
	}

	return nil
}

// loadConfig resolves the effective configuration from the four-layer override
// chain and stores the result in resolvedCfg for use by subcommands.
func loadConfig(cmd *cobra.Command) error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		LogLevel:   flagLogLevel(),
	}

	// --host and --port only exist on serve; Changed is false elsewhere.
	if cmd.Flags().Changed("host") {
		host, err := cmd.Flags().GetString("host")
		if err != nil {
			return err
		}

		cli.Host = &host
	}

	if cmd.Flags().Changed("port") {
		port, err := cmd.Flags().GetInt("port")
		if err != nil {
			return err
		}

		cli.Port = &port
	}

	env := config.ReadEnvOverrides()

	cfg, err := config.Resolve(env, cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = cfg
	resolvedPath = config.ResolvePath(env, cli)
	resolvedEnv = env
	resolvedCLI = cli

	return nil
}

// flagLogLevel maps --verbose, --debug and --quiet to a config level name.
// Empty means no flag was given.
func flagLogLevel() string {
	switch {
	case flagDebug:
		return "debug"
	case flagVerbose:
		return "info"
	case flagQuiet:
		return "error"
	default:
		return ""
	}
}

// parseLevel converts a validated level name to an slog.Level.
func parseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// bootstrapLogger is used by commands that run without a config file.
// Default is Warn so token output is not interleaved with log lines.
func bootstrapLogger() *slog.Logger {
	level := slog.LevelWarn
	if name := flagLogLevel(); name != "" {
		level = parseLevel(name)
	}

	return newLogger(os.Stderr, "text", level)
}

// buildLogger creates the server logger from the resolved config. The level
// lives in a LevelVar so a config reload can change it in place; CLI flags
// still win over the file.
func buildLogger(level *slog.LevelVar) *slog.Logger {
	format := "auto"

	if resolvedCfg != nil {
		level.Set(parseLevel(resolvedCfg.Logging.LogLevel))
		format = resolvedCfg.Logging.LogFormat
	}

	if name := flagLogLevel(); name != "" {
		level.Set(parseLevel(name))
	}

	return newLogger(os.Stderr, format, level)
}

// newLogger picks a handler for format. "auto" is text on a terminal and
// JSON when stderr is redirected to a file or collector.
func newLogger(w io.Writer, format string, level slog.Leveler) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(format) {
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts))
	case "text":
		return slog.New(slog.NewTextHandler(w, opts))
	}

	if f, ok := w.(*os.File); ok && !isTerminal(f) {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// exitOnError prints a user-friendly error message to stderr and exits.
func exitOnError(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
