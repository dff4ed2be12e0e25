package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the config file whenever it changes and reports the result.
// The parent directory is watched so editors that replace the file by rename
// are still seen. onChange receives either a valid Config or the load error.
// Watch returns once the watcher is installed; it stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(Config, error)) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(resolved)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != resolved {
					continue
				}
				if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
					continue
				}
				cfg, err := Load(resolved)
				onChange(cfg, err)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onChange(Config{}, fmt.Errorf("config watcher: %w", err))
			}
		}
	}()
	return nil
}
