// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package archive persists snapshots of chat sessions.
//
// A Store is a plain key/value collection of Entry values keyed by Entry.ID.
// Three backends satisfy it: SQLite (the default), a directory of JSON
// files, and an in-memory map for tests and for running without disk.
// Stores make no ordering promise; callers use SortNewestFirst.
package archive

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// idLayout is fixed width so lexicographic order is chronological order.
const idLayout = "2006-01-02T15:04:05.000000000Z"

// =============================================================================
// ENTRY TYPE
// =============================================================================

// Entry is one saved session. The JSON shape matches a single-session
// export, so an entry pulled out of a full-archive export can be imported
// on its own.
type Entry struct {
	ID        string          `json:"id"`
	PersonaID string          `json:"difficulty"`
	Messages  []model.Message `json:"chatHistory"`
}

// NewEntry snapshots conv at time at. The entry shares no memory with conv.
func NewEntry(conv *model.Conversation, at time.Time) Entry {
	return Entry{
		ID:        FormatID(at),
		PersonaID: conv.PersonaID,
		Messages:  model.CloneMessages(conv.Messages),
	}
}

// FormatID renders the entry id for a save at t.
func FormatID(t time.Time) string {
	return t.UTC().Format(idLayout)
}

// Created parses the save time back out of the id. Ids written by the
// browser client (millisecond ISO strings) parse as well.
func (e Entry) Created() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339Nano, e.ID)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Clone returns a deep copy of e.
func (e Entry) Clone() Entry {
	e.Messages = model.CloneMessages(e.Messages)
	return e
}

// Preview returns the first user message, truncated to maxRunes.
func (e Entry) Preview(maxRunes int) string {
	for _, m := range e.Messages {
		if m.Sender == model.SenderUser && m.Text != "" {
			return util.TruncateRunes(util.SingleLine(m.Text), maxRunes)
		}
	}
	return "(no messages)"
}

// Validate checks the fields a store relies on.
func (e Entry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidEntry)
	}
	return nil
}

// SortNewestFirst orders entries by id, most recent first.
func SortNewestFirst(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID > entries[j].ID
	})
}

// =============================================================================
// STORE CONTRACT
// =============================================================================

// Store is the archive key/value contract.
//
// Put inserts or replaces the entry at e.ID and is atomic with respect to
// concurrent readers. GetAll returns every entry in no particular order.
// Delete of a missing id is a no-op. Failures of the underlying engine
// match ErrStoreUnavailable.
type Store interface {
	Put(ctx context.Context, e Entry) error
	GetAll(ctx context.Context) ([]Entry, error)
	Delete(ctx context.Context, id string) error
	Close() error
}

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendDir    = "dir"
	BackendMemory = "memory"
)

// Backends lists the accepted backend names.
var Backends = []string{BackendSQLite, BackendDir, BackendMemory}

// Open opens the named backend at path. path is a database file for
// sqlite, a directory for dir, and ignored for memory.
func Open(backend, path string) (Store, error) {
	switch backend {
	case BackendSQLite, "":
		return OpenSQLite(path)
	case BackendDir:
		return OpenDir(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown archive backend %q", backend)
	}
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrStoreUnavailable matches any storage engine failure.
	ErrStoreUnavailable = &StoreError{Op: "store", Message: "archive store unavailable"}

	// ErrInvalidEntry is returned by Put for entries that cannot be keyed.
	ErrInvalidEntry = &StoreError{Op: "put", Message: "invalid archive entry"}
)

// StoreError reports a failed store operation.
type StoreError struct {
	Op      string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = ErrStoreUnavailable.Message
	}
	if e.Err != nil {
		return "archive " + e.Op + ": " + msg + ": " + e.Err.Error()
	}
	return "archive " + e.Op + ": " + msg
}

// Unwrap returns the engine error.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is matches StoreErrors by message, so every engine failure built by
// unavailable matches ErrStoreUnavailable.
func (e *StoreError) Is(target error) bool {
	t, ok := target.(*StoreError)
	if !ok {
		return false
	}
	return e.Message == t.Message
}

// unavailable wraps an engine error for op.
func unavailable(op string, err error) error {
	return &StoreError{Op: op, Message: ErrStoreUnavailable.Message, Err: err}
}
