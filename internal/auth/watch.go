// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultWatchDebounce coalesces the burst of events an atomic rename produces.
const DefaultWatchDebounce = 200 * time.Millisecond

// FileWatcher notifies a callback when the token file changes, e.g. after
// "counsel login" runs in another terminal. The parent directory is watched
// because atomic writes replace the file rather than modify it.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// NewFileWatcher creates a watcher for path. The parent directory is created
// if needed so a first login can be observed.
func NewFileWatcher(path string, onChange func(), logger *zap.Logger) (*FileWatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create token directory: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &FileWatcher{
		path:     filepath.Clean(path),
		watcher:  w,
		debounce: DefaultWatchDebounce,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}, nil
}

// Run processes events until ctx is cancelled or Close is called.
func (fw *FileWatcher) Run(ctx context.Context) {
	defer close(fw.done)
	for {
		select {
		case <-ctx.Done():
			fw.stopTimer()
			return
		case event, ok := <-fw.watcher.Events:
			if !ok {
				fw.stopTimer()
				return
			}
			if filepath.Clean(event.Name) != fw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			fw.schedule()
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				fw.stopTimer()
				return
			}
			fw.logger.Warn("token watcher error", zap.Error(err))
		}
	}
}

// Close stops the watcher. Run returns shortly after.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}

// Done is closed once Run has returned.
func (fw *FileWatcher) Done() <-chan struct{} {
	return fw.done
}

func (fw *FileWatcher) schedule() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.timer != nil {
		fw.timer.Stop()
	}
	fw.timer = time.AfterFunc(fw.debounce, func() {
		fw.logger.Debug("token file changed", zap.String("path", fw.path))
		if fw.onChange != nil {
			fw.onChange()
		}
	})
}

func (fw *FileWatcher) stopTimer() {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.timer != nil {
		fw.timer.Stop()
		fw.timer = nil
	}
}
