// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/jeranaias/rolechat/internal/util"
)

var errClosed = errors.New("store closed")

// DirStore keeps one JSON file per entry in a directory. Writes go through
// util.AtomicWriteFile, so readers never see a partial entry.
type DirStore struct {
	// BaseDir holds the entry files.
	BaseDir string

	mu     sync.RWMutex
	closed bool
}

// OpenDir opens (creating if needed) a directory store.
func OpenDir(baseDir string) (*DirStore, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("archive directory not set")
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, unavailable("open", err)
	}
	return &DirStore{BaseDir: baseDir}, nil
}

// Put writes e to its file.
func (s *DirStore) Put(ctx context.Context, e Entry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return unavailable("put", errClosed)
	}
	if err := util.AtomicWriteFile(s.filePath(e.ID), data, 0o644); err != nil {
		return unavailable("put", err)
	}
	return nil
}

// GetAll reads every entry file. Unreadable or corrupt files are skipped.
func (s *DirStore) GetAll(ctx context.Context) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, unavailable("get", errClosed)
	}

	files, err := os.ReadDir(s.BaseDir)
	if err != nil {
		return nil, unavailable("get", err)
	}

	entries := make([]Entry, 0, len(files))
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.BaseDir, f.Name()))
		if err != nil {
			continue
		}
		var e Entry
		if err := json.Unmarshal(data, &e); err != nil || e.ID == "" {
			slog.Warn("ARCHIVE_ENTRY_CORRUPT", "backend", BackendDir, "file", f.Name(), "error", err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Delete removes the file for id. A missing file is not an error.
func (s *DirStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return unavailable("delete", errClosed)
	}
	if err := os.Remove(s.filePath(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return unavailable("delete", err)
	}
	return nil
}

// Close marks the store closed.
func (s *DirStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// filePath maps an id to a portable file name.
func (s *DirStore) filePath(id string) string {
	name := strings.NewReplacer(":", "-", "/", "_", "\\", "_").Replace(id)
	return filepath.Join(s.BaseDir, name+".json")
}
