package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/verustcode/ctreport/pkg/errors"
	"github.com/verustcode/ctreport/pkg/logger"
)

// watchNotebook calls fn after the notebook stops changing for debounce.
// The parent directory is watched because CherryTree replaces the file on save.
func watchNotebook(ctx context.Context, path string, debounce time.Duration, fn func(context.Context)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to create file watcher", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, "failed to resolve notebook path", err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, "failed to watch notebook directory", err)
	}

	logger.Info("Watching notebook for changes", zap.String(logger.FieldPath, abs))

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopped watching")
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isNotebookChange(ev, abs) {
				continue
			}
			logger.Debug("Notebook changed", zap.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", zap.Error(err))
		case <-timer.C:
			fn(ctx)
		}
	}
}

// isNotebookChange reports whether ev modifies the notebook at abs
func isNotebookChange(ev fsnotify.Event, abs string) bool {
	if filepath.Clean(ev.Name) != abs {
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename)
}
