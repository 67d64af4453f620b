package configschema

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// WatchFile recompiles the schema at path whenever the file changes and
// reports each outcome to onChange: a fresh *Schema on success, or the
// compile/read error when the new content is unusable (the previous schema
// stays in effect in that case; keeping it is the caller's job).
//
// Editors commonly replace files via rename, so the watch is registered on
// the parent directory and events are filtered to the target name. WatchFile
// blocks until ctx is done.
func WatchFile(ctx context.Context, path string, onChange func(*Schema, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve schema path %q: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create schema watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch schema dir: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
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
			onChange(FromFile(abs))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			slog.Debug("schema watch error", slog.String("err", err.Error()))
		}
	}
}
