package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce coalesces the burst of events an editor save produces.
const defaultDebounce = 250 * time.Millisecond

// Watcher reloads the config file when it changes. It watches the file's
// directory rather than the file, because editors often replace the file
// by rename. Invalid edits are logged and the previous config is kept.
type Watcher struct {
	Holder *Holder

	// Reload produces the new config; typically Resolve with the same
	// environment and CLI overrides used at startup.
	Reload func() (*Config, error)

	// OnChange is called with the previous and new config after each
	// successful reload.
	OnChange func(old, cfg *Config)

	Logger   *slog.Logger
	Debounce time.Duration
}

// Run watches until ctx is canceled. A Holder without a path has nothing
// to watch and Run just waits for ctx.
func (w *Watcher) Run(ctx context.Context) error {
	logger := w.Logger
	if logger == nil {
		logger = slog.Default()
	}

	path := w.Holder.Path()
	if path == "" {
		<-ctx.Done()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer fsw.Close()

	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		logger.Warn("config directory not watchable, live reload disabled",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)

		<-ctx.Done()

		return nil
	}

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	name := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if filepath.Clean(ev.Name) != name || (ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write)) {
				continue
			}

			timer.Reset(debounce)

		case werr, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			logger.Warn("config watcher error", slog.String("error", werr.Error()))

		case <-timer.C:
			w.reload(logger)
		}
	}
}

func (w *Watcher) reload(logger *slog.Logger) {
	cfg, err := w.Reload()
	if err != nil {
		logger.Warn("config reload failed, keeping previous config",
			slog.String("path", w.Holder.Path()),
			slog.String("error", err.Error()),
		)

		return
	}

	old := w.Holder.Update(cfg)

	logger.Info("config reloaded", slog.String("path", w.Holder.Path()))

	if w.OnChange != nil {
		w.OnChange(old, cfg)
	}
}
