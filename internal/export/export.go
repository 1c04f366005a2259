// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// =============================================================================
// FILE SHAPES
// =============================================================================

// Session is a single exported conversation.
type Session struct {
	PersonaID       string          `json:"difficulty"`
	Messages        []model.Message `json:"chatHistory"`
	ExportTimestamp time.Time       `json:"exportTimestamp"`
}

// NewSession snapshots conv for export at time at.
func NewSession(conv *model.Conversation, at time.Time) *Session {
	return &Session{
		PersonaID:       conv.PersonaID,
		Messages:        model.CloneMessages(conv.Messages),
		ExportTimestamp: at.UTC(),
	}
}

// Archive is every saved conversation exported together.
type Archive struct {
	ExportedChats   []archive.Entry `json:"exportedChats"`
	ExportTimestamp time.Time       `json:"exportTimestamp"`
}

// NewArchive wraps entries, newest first, for export at time at.
func NewArchive(entries []archive.Entry, at time.Time) *Archive {
	chats := make([]archive.Entry, len(entries))
	for i, e := range entries {
		chats[i] = e.Clone()
	}
	archive.SortNewestFirst(chats)
	return &Archive{ExportedChats: chats, ExportTimestamp: at.UTC()}
}

// =============================================================================
// EXPORT INTERFACE
// =============================================================================

// Exporter renders a single session.
type Exporter interface {
	// Export converts a session to the target format.
	Export(s *Session) ([]byte, error)

	// FileExtension returns the file extension including the dot.
	FileExtension() string

	// MimeType returns the MIME type for the format.
	MimeType() string
}

// =============================================================================
// FILES
// =============================================================================

// SessionFileName names a single-session export made at t.
func SessionFileName(t time.Time) string {
	return "chat_export_" + fileStamp(t) + ".json"
}

// ArchiveFileName names a full-archive export made at t.
func ArchiveFileName(t time.Time) string {
	return "chat_archive_export_" + fileStamp(t) + ".json"
}

// FileName names a single-session export for exporter made at t.
func FileName(exporter Exporter, t time.Time) string {
	return "chat_export_" + fileStamp(t) + exporter.FileExtension()
}

// fileStamp is an ISO-8601 UTC time with characters that some file systems
// reject replaced.
func fileStamp(t time.Time) string {
	return strings.NewReplacer(":", "-", ".", "-").Replace(t.UTC().Format("2006-01-02T15:04:05.000Z"))
}

// WriteFile writes data to dir/name atomically and returns the path.
func WriteFile(dir, name string, data []byte) (string, error) {
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)
	if err := util.AtomicWriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	return path, nil
}

// ExportToFile renders s with exporter and writes it to dir.
func ExportToFile(s *Session, exporter Exporter, dir string) (string, error) {
	data, err := exporter.Export(s)
	if err != nil {
		return "", fmt.Errorf("export failed: %w", err)
	}
	return WriteFile(dir, FileName(exporter, s.ExportTimestamp), data)
}
