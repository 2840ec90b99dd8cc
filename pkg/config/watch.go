package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/goshawk-nvr/goshawk/internal/logger"
)

// Watch watches the configuration file at path and invokes onChange with a
// freshly loaded Config every time the file is rewritten. Changes that fail
// to load or validate are logged and skipped, so a half-saved file never
// reaches the callback.
//
// Watch blocks until ctx is cancelled. Run it in its own goroutine.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory rather than the file. Most editors and config
	// management tools replace the file via rename, which detaches a watch
	// held on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	base := filepath.Base(path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			// Create covers the rename-replace case.
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			cfg, err := Load(path)
			if err != nil {
				logger.Warn("ignoring config change", logger.Path(path), logger.Err(err))
				continue
			}
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", logger.Err(err))
		}
	}
}
