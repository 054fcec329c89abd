package config

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Update is one outcome of a config file change: either a freshly parsed
// snapshot or the error that prevented it.
type Update struct {
	Snapshot *Config
	Warnings []string
	Err      error
}

// Watcher reparses the config file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which replace the file (rename + create) do not silently drop
// the watch.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	stopCh  chan struct{}
	done    chan struct{}
}

// NewWatcher sets up a file watcher for the given config path.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fw.Close()
		return nil, err
	}

	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:    abs,
		watcher: fw,
		logger:  logger,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}, nil
}

// Run delivers an Update for every relevant filesystem event until Stop is
// called. Sends block until the receiver drains them, which backpressures
// bursts of rapid file writes.
func (w *Watcher) Run(updates chan<- Update) {
	defer close(w.done)

	for {
		select {
		case <-w.stopCh:
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.logger.Debug("config file event", "op", ev.Op.String(), "path", ev.Name)

			cfg, warnings, err := Load(w.path)
			select {
			case updates <- Update{Snapshot: cfg, Warnings: warnings, Err: err}:
			case <-w.stopCh:
				return
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error", "error", err)
		}
	}
}

// Stop terminates the watcher and waits for Run to return.
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
	<-w.done
}
