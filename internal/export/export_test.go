// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/model"
)

func sampleConversation() *model.Conversation {
	conv := model.NewConversation("Philosopher")
	conv.Append(model.NewUserMessage("What is the meaning of life?"))
	conv.Append(model.NewModelMessage("What if there is none?"))
	conv.Append(model.NewErrorMessage("Connection problem."))
	return conv
}

// =============================================================================
// SESSION FORMAT TESTS
// =============================================================================

func TestSessionRoundTrip(t *testing.T) {
	conv := sampleConversation()
	at := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	data, err := NewJSONExporter().Export(NewSession(conv, at))
	require.NoError(t, err)

	got, err := DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, conv.PersonaID, got.PersonaID)
	assert.Equal(t, conv.Messages, got.Messages)
	assert.True(t, got.ExportTimestamp.Equal(at))
}

func TestSessionWireShape(t *testing.T) {
	data, err := NewJSONExporter().Export(NewSession(sampleConversation(), time.Now()))
	require.NoError(t, err)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"difficulty", "chatHistory", "exportTimestamp"} {
		assert.Contains(t, raw, key)
	}
}

func TestNewSession_IsSnapshot(t *testing.T) {
	conv := sampleConversation()
	s := NewSession(conv, time.Now())
	conv.Messages[1].Text = "changed"
	assert.Equal(t, "What is the meaning of life?", s.Messages[1].Text)
}

func TestDecodeSession_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want error
	}{
		{"not json", "{oops", ErrNotJSON},
		{"missing chatHistory", `{"difficulty":"Open","exportTimestamp":"2025-01-01T00:00:00Z"}`, ErrNoChatHistory},
		{"null chatHistory", `{"difficulty":"Open","chatHistory":null}`, ErrNoChatHistory},
		{"chatHistory wrong type", `{"chatHistory":"hello"}`, ErrNotJSON},
		{"array at top level", `[1,2,3]`, ErrNotJSON},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeSession([]byte(tc.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), "err = %v, want %v", err, tc.want)
			assert.True(t, errors.Is(err, ErrFormat))
		})
	}
}

func TestDecodeSession_BrowserFile(t *testing.T) {
	data := `{
		"difficulty": "Rude",
		"chatHistory": [
			{"text": "Hi!", "sender": "model", "timestamp": "10:00:00"},
			{"text": "Hello", "sender": "user", "timestamp": "10:00:04"},
			{"text": "❌ Server overloaded.", "sender": "model", "timestamp": "10:00:09", "isError": true}
		],
		"exportTimestamp": "2025-03-02T10:01:00.000Z"
	}`

	s, err := DecodeSession([]byte(data))
	require.NoError(t, err)
	assert.Equal(t, "Rude", s.PersonaID)
	require.Len(t, s.Messages, 3)
	assert.Equal(t, model.SenderUser, s.Messages[1].Sender)
	assert.True(t, s.Messages[2].IsError)
	assert.Equal(t, "10:00:04", s.Messages[1].Timestamp.Format("15:04:05"))
}

func TestDecodeSession_ArchiveEntryIsImportable(t *testing.T) {
	entry := archive.NewEntry(sampleConversation(), time.Now())
	data, err := json.Marshal(entry)
	require.NoError(t, err)

	s, err := DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, entry.PersonaID, s.PersonaID)
	assert.Equal(t, entry.Messages, s.Messages)
}

// =============================================================================
// ARCHIVE FORMAT TESTS
// =============================================================================

func TestArchiveRoundTrip(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	older := archive.NewEntry(sampleConversation(), base)
	newer := archive.NewEntry(sampleConversation(), base.Add(time.Hour))

	data, err := EncodeArchive(NewArchive([]archive.Entry{older, newer}, base.Add(2*time.Hour)))
	require.NoError(t, err)

	got, err := DecodeArchive(data)
	require.NoError(t, err)
	require.Len(t, got.ExportedChats, 2)
	assert.Equal(t, newer, got.ExportedChats[0])
	assert.Equal(t, older, got.ExportedChats[1])
}

func TestDecodeArchive_Errors(t *testing.T) {
	_, err := DecodeArchive([]byte(`{"chatHistory":[]}`))
	assert.True(t, errors.Is(err, ErrNoExportedChats))

	_, err = DecodeArchive([]byte(`nope`))
	assert.True(t, errors.Is(err, ErrNotJSON))
}

// =============================================================================
// MARKDOWN TESTS
// =============================================================================

func TestMarkdownExporter(t *testing.T) {
	e := NewMarkdownExporter()
	data, err := e.Export(NewSession(sampleConversation(), time.Now()))
	require.NoError(t, err)

	md := string(data)
	assert.True(t, strings.HasPrefix(md, "# Conversation: Philosopher"))
	assert.Contains(t, md, "**You**")
	assert.Contains(t, md, "**Partner**")
	assert.Contains(t, md, "What if there is none?")
	assert.Contains(t, md, "> "+model.ErrorPrefix+"Connection problem.")
	assert.Equal(t, ".md", e.FileExtension())
	assert.Equal(t, "text/markdown", e.MimeType())
}

func TestEscapeMarkdown(t *testing.T) {
	if got := escapeMarkdown("a_b*c#"); got != `a\_b\*c\#` {
		t.Errorf("escapeMarkdown = %q", got)
	}
}

// =============================================================================
// FILE TESTS
// =============================================================================

func TestFileNames(t *testing.T) {
	at := time.Date(2025, 6, 1, 9, 30, 15, 123_000_000, time.UTC)

	assert.Equal(t, "chat_export_2025-06-01T09-30-15-123Z.json", SessionFileName(at))
	assert.Equal(t, "chat_archive_export_2025-06-01T09-30-15-123Z.json", ArchiveFileName(at))
	assert.Equal(t, "chat_export_2025-06-01T09-30-15-123Z.md", FileName(NewMarkdownExporter(), at))

	for _, name := range []string{SessionFileName(at), ArchiveFileName(at)} {
		assert.NotContains(t, name, ":")
	}
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(sampleConversation(), time.Now())

	path, err := ExportToFile(s, NewJSONExporter(), dir)
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := DecodeSession(data)
	require.NoError(t, err)
	assert.Equal(t, s.Messages, got.Messages)
}
