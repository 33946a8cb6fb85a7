package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// reloadOps are the events on the config file that trigger a reload. An
// atomic save (write temp file, rename over path) surfaces as Create or
// Rename on the target name, an in-place save as Write.
const reloadOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watch reloads the file at path whenever it changes and hands each valid
// Config to onChange. It blocks until ctx is cancelled.
//
// The parent directory is watched rather than the file, so replacing the
// file by rename keeps reloads coming. A file that fails to load is logged
// and skipped; the caller keeps its current Config.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	slog.Info("config: watching for changes", "path", path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path || ev.Op&reloadOps == 0 {
				continue
			}
			reload(path, ev.Op, onChange)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}

func reload(path string, op fsnotify.Op, onChange func(*Config)) {
	cfg, err := Load(path)
	if err != nil {
		slog.Warn("config: reload skipped, keeping current config",
			"path", path, "op", op.String(), "err", err)
		return
	}
	slog.Info("config: reloaded", "path", path, "op", op.String())
	onChange(cfg)
}
