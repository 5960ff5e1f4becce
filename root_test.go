package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tonimelisma/drivegate/internal/config"
)

// Global flag reset pattern: newRootCmd() binds flags via StringVar/BoolVar,
// which reset the global flag variables to their zero values. Tests must either:
//   - Set globals AFTER newRootCmd() returns (direct function tests), or
//   - Use cmd.SetArgs() + cmd.Execute() to let Cobra parse flags.

// saveGlobals restores every package-level flag and resolved value on cleanup.
func saveGlobals(t *testing.T) {
	t.Helper()

	oldPath, oldVerbose, oldDebug, oldQuiet := flagConfigPath, flagVerbose, flagDebug, flagQuiet
	oldCfg, oldResolvedPath, oldEnv, oldCLI := resolvedCfg, resolvedPath, resolvedEnv, resolvedCLI

	t.Cleanup(func() {
		flagConfigPath, flagVerbose, flagDebug, flagQuiet = oldPath, oldVerbose, oldDebug, oldQuiet
		resolvedCfg, resolvedPath, resolvedEnv, resolvedCLI = oldCfg, oldResolvedPath, oldEnv, oldCLI
	})
}

// isolateEnv clears the variables that would leak the developer's setup
// into config resolution.
func isolateEnv(t *testing.T) {
	t.Helper()

	for _, name := range []string{config.EnvConfig, config.EnvHost, config.EnvPort, config.EnvLogLevel} {
		t.Setenv(name, "")
	}

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

// --- logger tests ---

func TestBootstrapLogger_Levels(t *testing.T) {
	tests := []struct {
		name                  string
		verbose, debug, quiet bool
		enabled, disabled     slog.Level
	}{
		{"default", false, false, false, slog.LevelWarn, slog.LevelInfo},
		{"verbose", true, false, false, slog.LevelInfo, slog.LevelDebug},
		{"debug", false, true, false, slog.LevelDebug, slog.LevelDebug - 1},
		{"quiet", false, false, true, slog.LevelError, slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			saveGlobals(t)

			flagVerbose, flagDebug, flagQuiet = tt.verbose, tt.debug, tt.quiet

			logger := bootstrapLogger()
			assert.True(t, logger.Handler().Enabled(context.Background(), tt.enabled))
			assert.False(t, logger.Handler().Enabled(context.Background(), tt.disabled))
		})
	}
}

func TestBuildLogger_ConfigLevel(t *testing.T) {
	saveGlobals(t)

	flagVerbose, flagDebug, flagQuiet = false, false, false
	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.LogLevel = "warn"

	level := new(slog.LevelVar)
	logger := buildLogger(level)

	assert.Equal(t, slog.LevelWarn, level.Level())
	assert.False(t, logger.Handler().Enabled(context.Background(), slog.LevelInfo))

	// The handler follows the LevelVar, which is what a reload changes.
	level.Set(slog.LevelDebug)
	assert.True(t, logger.Handler().Enabled(context.Background(), slog.LevelDebug))
}

func TestBuildLogger_FlagsOverrideConfig(t *testing.T) {
	saveGlobals(t)

	resolvedCfg = config.DefaultConfig()
	resolvedCfg.Logging.LogLevel = "error"
	flagVerbose, flagDebug, flagQuiet = false, true, false

	level := new(slog.LevelVar)
	buildLogger(level)

	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestBuildLogger_NoConfig(t *testing.T) {
	saveGlobals(t)

	resolvedCfg = nil
	flagVerbose, flagDebug, flagQuiet = false, false, false

	level := new(slog.LevelVar)
	buildLogger(level)

	assert.Equal(t, slog.LevelInfo, level.Level())
}

func TestNewLogger_Formats(t *testing.T) {
	var jsonBuf, textBuf, autoBuf bytes.Buffer

	newLogger(&jsonBuf, "json", slog.LevelInfo).Info("hello", slog.String("k", "v"))
	newLogger(&textBuf, "text", slog.LevelInfo).Info("hello", slog.String("k", "v"))
	newLogger(&autoBuf, "auto", slog.LevelInfo).Info("hello", slog.String("k", "v"))

	assert.Contains(t, jsonBuf.String(), `"msg":"hello"`)
	assert.Contains(t, textBuf.String(), "msg=hello k=v")

	// A non-file writer has no terminal to detect; auto falls back to text.
	assert.Contains(t, autoBuf.String(), "msg=hello")
}

func TestNewLogger_AutoOnRedirectedFile(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "log.json"))
	require.NoError(t, err)

	defer f.Close()

	newLogger(f, "auto", slog.LevelInfo).Info("hello")

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"hello"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelInfo, parseLevel("info"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelError, parseLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

// --- Cobra structure tests ---

func TestNewRootCmd_Subcommands(t *testing.T) {
	cmd := newRootCmd()

	for _, args := range [][]string{
		{"serve"},
		{"token", "keygen"},
		{"token", "seal"},
		{"token", "open"},
		{"config", "show"},
	} {
		sub, _, err := cmd.Find(args)
		require.NoError(t, err)
		assert.Equal(t, args[len(args)-1], sub.Name())
	}
}

func TestNewRootCmd_PersistentFlags(t *testing.T) {
	cmd := newRootCmd()

	for _, name := range []string{"config", "verbose", "debug", "quiet"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(name), "expected persistent flag %q", name)
	}
}

func TestNewRootCmd_MutualExclusivity(t *testing.T) {
	saveGlobals(t)

	// "token keygen" skips config loading, so a config problem cannot mask
	// the flag group error.
	pairs := [][]string{
		{"--verbose", "--debug"},
		{"--verbose", "--quiet"},
		{"--debug", "--quiet"},
	}

	for _, flags := range pairs {
		t.Run(flags[0]+"_"+flags[1], func(t *testing.T) {
			cmd := newRootCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetArgs(append(flags, "token", "keygen"))

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "none of the others can be")
		})
	}
}

func TestSkipConfigCommands_UsesCommandPath(t *testing.T) {
	cmd := newRootCmd()

	for _, args := range [][]string{{"token"}, {"token", "keygen"}, {"token", "seal"}, {"token", "open"}} {
		sub, _, err := cmd.Find(args)
		require.NoError(t, err)
		assert.True(t, skipConfigCommands[sub.CommandPath()], "CommandPath %q should skip config", sub.CommandPath())
	}

	assert.False(t, skipConfigCommands["drivegate serve"])
	assert.False(t, skipConfigCommands["seal"], "bare names must not match")
}

func TestTokenCommands_SkipBrokenConfig(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	path := writeConfig(t, "[server]\nprot = 1\n")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--config", path, "token", "keygen"})

	assert.NoError(t, cmd.Execute())
}

// --- loadConfig tests ---

func TestLoadConfig_ValidTOML(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	path := writeConfig(t, "[server]\nport = 9191\n\n[logging]\nlog_level = \"warn\"\n")

	cmd := newRootCmd()
	flagConfigPath = path

	require.NoError(t, loadConfig(cmd))
	require.NotNil(t, resolvedCfg)

	assert.Equal(t, 9191, resolvedCfg.Server.Port)
	assert.Equal(t, "warn", resolvedCfg.Logging.LogLevel)
	assert.Equal(t, path, resolvedPath)
	assert.Equal(t, path, resolvedCLI.ConfigPath)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	cmd := newRootCmd()
	flagConfigPath = writeConfig(t, "[upload]\nworkers = 0\n")

	err := loadConfig(cmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestLoadConfig_ServeFlagsOverride(t *testing.T) {
	saveGlobals(t)
	isolateEnv(t)

	path := writeConfig(t, "[server]\nhost = \"10.1.1.1\"\nport = 9000\n")
	t.Setenv(config.EnvPort, "9100")

	cmd := newRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	require.NoError(t, serve.ParseFlags([]string{"--port", "9200", "--debug"}))

	flagConfigPath = path

	require.NoError(t, loadConfig(serve))
	assert.Equal(t, "10.1.1.1", resolvedCfg.Server.Host)
	assert.Equal(t, 9200, resolvedCfg.Server.Port)
	assert.Equal(t, "debug", resolvedCfg.Logging.LogLevel)
	assert.Equal(t, "9100", resolvedEnv.Port)
}

func TestLoadDotenv(t *testing.T) {
	t.Setenv("DRIVEGATE_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("DRIVEGATE_TEST_DOTENV"))

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRIVEGATE_TEST_DOTENV=from-file\n"), 0o600))

	require.NoError(t, loadDotenv(path))
	assert.Equal(t, "from-file", os.Getenv("DRIVEGATE_TEST_DOTENV"))

	require.NoError(t, loadDotenv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestLoadDotenv_DoesNotOverride(t *testing.T) {
	t.Setenv("DRIVEGATE_TEST_DOTENV", "from-env")

	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DRIVEGATE_TEST_DOTENV=from-file\n"), 0o600))

	require.NoError(t, loadDotenv(path))
	assert.Equal(t, "from-env", os.Getenv("DRIVEGATE_TEST_DOTENV"))
}
