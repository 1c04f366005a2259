// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultWatchDebounce coalesces the burst of events one atomic write makes.
const DefaultWatchDebounce = 200 * time.Millisecond

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// Watcher reports changes made to a DirStore's directory, including those
// made by other processes such as a second `rolechat archive` command.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}
	logger   *slog.Logger

	mu      sync.Mutex
	pending time.Time // zero when nothing is waiting

	ctx    context.Context
	cancel context.CancelFunc
	done   sync.WaitGroup
}

// WatchDir starts watching dir. Changes to entry files are delivered on
// Changes after debounce of quiet; bursts collapse into one signal.
func WatchDir(dir string, debounce time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultWatchDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		watcher:  fw,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		logger:   slog.Default(),
		ctx:      ctx,
		cancel:   cancel,
	}

	w.done.Add(2)
	go w.processEvents()
	go w.processPending()
	return w, nil
}

// Watch starts a watcher for stores backed by a directory. Other stores
// have nothing to watch and return nil, nil.
func Watch(s Store, debounce time.Duration) (*Watcher, error) {
	ds, ok := s.(*DirStore)
	if !ok {
		return nil, nil
	}
	return WatchDir(ds.BaseDir, debounce)
}

// Changes delivers one value per settled burst of changes. It is closed by
// Close.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops watching and closes Changes.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.watcher.Close()
	w.done.Wait()
	close(w.changes)
	return err
}

func (w *Watcher) processEvents() {
	defer w.done.Done()
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !isEntryFile(event.Name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("ARCHIVE_WATCH_ERROR", "error", err)
		}
	}
}

// processPending signals once the directory has been quiet for debounce.
func (w *Watcher) processPending() {
	defer w.done.Done()
	tick := w.debounce / 2
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			w.mu.Lock()
			ready := !w.pending.IsZero() && now.Sub(w.pending) >= w.debounce
			if ready {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if ready {
				select {
				case w.changes <- struct{}{}:
				default: // a signal is already waiting
				}
			}
		}
	}
}

// isEntryFile skips the temp files written on the way to an atomic rename.
func isEntryFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}
