package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/doeshing/ridepilot/internal/domain"
	"github.com/doeshing/ridepilot/internal/ports"
)

const debounceInterval = 100 * time.Millisecond

// Watch calls onChange with the freshly parsed config whenever the file is
// written or replaced, until ctx is done. Unparseable edits are logged and skipped.
func (l *FileLoader) Watch(ctx context.Context, log ports.Logger, onChange func(domain.Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	path := l.Path()
	// editors often replace the file, so watch the directory
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return err
	}

	go func() {
		defer watcher.Close()
		var debounce *time.Timer
		reload := func() {
			cfg, err := l.Load(ctx)
			if err != nil {
				log.Warn("config reload failed", map[string]interface{}{"path": path, "error": err.Error()})
				return
			}
			log.Info("config reloaded", map[string]interface{}{"path": path})
			onChange(cfg)
		}
		for {
			select {
			case <-ctx.Done():
				if debounce != nil {
					debounce.Stop()
				}
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != filepath.Base(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceInterval, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("config watcher error", map[string]interface{}{"error": err.Error()})
			}
		}
	}()
	return nil
}
