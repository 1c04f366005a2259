// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// JSON EXPORTER
// =============================================================================

// JSONExporter writes the single-session interchange format.
type JSONExporter struct{}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{}
}

// Export encodes s as indented JSON.
func (e *JSONExporter) Export(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}
	return json.MarshalIndent(s, "", "  ")
}

// FileExtension returns the file extension for JSON.
func (e *JSONExporter) FileExtension() string {
	return ".json"
}

// MimeType returns the MIME type for JSON.
func (e *JSONExporter) MimeType() string {
	return "application/json"
}

// EncodeArchive encodes a full-archive export.
func EncodeArchive(a *Archive) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("archive is nil")
	}
	return json.MarshalIndent(a, "", "  ")
}

// =============================================================================
// IMPORT
// =============================================================================

// ErrFormat matches every import format failure.
var ErrFormat = &FormatError{Reason: "unrecognized file format"}

var (
	// ErrNotJSON means the file is not valid JSON.
	ErrNotJSON = &FormatError{Reason: "could not read JSON file"}

	// ErrNoChatHistory means the JSON lacks the chatHistory field.
	ErrNoChatHistory = &FormatError{Reason: "file does not contain a chat history"}

	// ErrNoExportedChats means the JSON lacks the exportedChats field.
	ErrNoExportedChats = &FormatError{Reason: "file does not contain exported chats"}
)

// FormatError describes why import data was rejected.
type FormatError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *FormatError) Error() string {
	if e.Err != nil {
		return e.Reason + ": " + e.Err.Error()
	}
	return e.Reason
}

// Unwrap returns the decoder error, if any.
func (e *FormatError) Unwrap() error {
	return e.Err
}

// Is matches ErrFormat for every FormatError, and otherwise compares
// reasons.
func (e *FormatError) Is(target error) bool {
	t, ok := target.(*FormatError)
	if !ok {
		return false
	}
	return t == ErrFormat || t.Reason == e.Reason
}

// DecodeSession parses a single-session file. The chatHistory field must be
// present; difficulty and exportTimestamp are optional.
func DecodeSession(data []byte) (*Session, error) {
	var raw struct {
		PersonaID       string          `json:"difficulty"`
		Messages        json.RawMessage `json:"chatHistory"`
		ExportTimestamp json.RawMessage `json:"exportTimestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Reason: ErrNotJSON.Reason, Err: err}
	}
	if len(raw.Messages) == 0 || bytes.Equal(raw.Messages, []byte("null")) {
		return nil, ErrNoChatHistory
	}

	s := &Session{PersonaID: raw.PersonaID}
	if err := json.Unmarshal(raw.Messages, &s.Messages); err != nil {
		return nil, &FormatError{Reason: ErrNotJSON.Reason, Err: err}
	}
	// Tolerate odd export timestamps; they are informational.
	_ = json.Unmarshal(raw.ExportTimestamp, &s.ExportTimestamp)
	return s, nil
}

// DecodeArchive parses a full-archive file.
func DecodeArchive(data []byte) (*Archive, error) {
	var raw struct {
		ExportedChats   json.RawMessage `json:"exportedChats"`
		ExportTimestamp json.RawMessage `json:"exportTimestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &FormatError{Reason: ErrNotJSON.Reason, Err: err}
	}
	if len(raw.ExportedChats) == 0 || bytes.Equal(raw.ExportedChats, []byte("null")) {
		return nil, ErrNoExportedChats
	}

	a := &Archive{}
	if err := json.Unmarshal(raw.ExportedChats, &a.ExportedChats); err != nil {
		return nil, &FormatError{Reason: ErrNotJSON.Reason, Err: err}
	}
	_ = json.Unmarshal(raw.ExportTimestamp, &a.ExportTimestamp)
	return a, nil
}
