package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads filename whenever it changes on disk and hands each successfully
// loaded value to onChange. newTarget supplies the defaults a reload starts from.
// Invalid files are logged and skipped. Watch blocks until ctx is done.
//
// The parent directory is watched rather than the file, so editors that save by
// rename are picked up.
func Watch[T any](ctx context.Context, filename string, newTarget func() *T, onChange func(*T), logger *slog.Logger) error {
	abs, err := filepath.Abs(filename)
	if err != nil {
		return fmt.Errorf("resolve config path %s: %w", filename, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}
	logger.Info("config watcher: started", slog.String("path", abs))

	const debounce = 200 * time.Millisecond
	var (
		timer  *time.Timer
		reload <-chan time.Time
	)

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("config watcher: stopped")
			return nil

		case <-reload:
			reload = nil
			target := newTarget()
			if err := Load(abs, target); err != nil {
				logger.Warn("config watcher: reload rejected", slog.String("error", err.Error()))
				continue
			}
			logger.Info("config watcher: reloaded", slog.String("path", abs))
			onChange(target)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			reload = timer.C

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher: error", slog.String("error", err.Error()))
		}
	}
}
