// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
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
	"github.com/jeranaias/rolechat/internal/client"
	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/export"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
)

// =============================================================================
// HELPERS
// =============================================================================

// fixedClock makes timeNow step one second per call from a fixed start.
func fixedClock(t *testing.T) {
	t.Helper()
	tick := time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)
	prev := timeNow
	timeNow = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}
	t.Cleanup(func() { timeNow = prev })
}

// testConfig writes a config file that keeps the archive under a temp dir.
func testConfig(t *testing.T) (cfgPath, archiveDir string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	archiveDir = filepath.Join(home, "archive")
	cfgPath = filepath.Join(home, "config.toml")
	content := "[archive]\nbackend = \"dir\"\npath = '" + archiveDir + "'\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))
	return cfgPath, archiveDir
}

// run executes the command tree and returns stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	ForceColorsEnabled(false)
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(""))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Command string          `json:"command"`
}

func decodeEnvelope(t *testing.T, out string) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), out)
	return env
}

func sampleEntry(id, personaID string, texts ...string) archive.Entry {
	msgs := []model.Message{model.NewGreeting()}
	for i, text := range texts {
		if i%2 == 0 {
			msgs = append(msgs, model.NewUserMessage(text))
		} else {
			msgs = append(msgs, model.NewModelMessage(text))
		}
	}
	return archive.Entry{ID: id, PersonaID: personaID, Messages: msgs}
}

// =============================================================================
// ERRORS
// =============================================================================

func TestGetExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitSuccess},
		{"usage", &UsageError{Reason: "bad"}, ExitUsageError},
		{"format", export.ErrNotJSON, ExitUsageError},
		{"not found", &NotFoundError{Resource: "saved chat", ID: "9"}, ExitNotFoundError},
		{"config", config.ValidateErrors{{Field: "server.port", Message: "bad"}}, ExitConfigError},
		{"wrapped config", errors.Join(errors.New("load"), config.ValidationError{Field: "x"}), ExitConfigError},
		{"network", &client.TransportError{Err: errors.New("refused")}, ExitNetworkError},
		{"timeout", &client.TransportError{Err: context.DeadlineExceeded}, ExitTimeoutError},
		{"other", errors.New("boom"), ExitGeneralError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GetExitCode(tt.err); got != tt.want {
				t.Errorf("GetExitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}

func TestDisplayError_JSON(t *testing.T) {
	var buf bytes.Buffer
	DisplayError(&buf, &NotFoundError{Resource: "saved chat", ID: "7"}, true)

	var resp JSONResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Success)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "saved chat not found: 7", *resp.Error)
	assert.Equal(t, "not_found_error", resp.ErrorType)
}

// =============================================================================
// CONFIRMATION
// =============================================================================

func TestRequireConfirmation(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		opts    ConfirmationOptions
		want    bool
		wantErr bool
	}{
		{"flag", "", ConfirmationOptions{ConfirmFlag: true}, true, false},
		{"json without flag", "", ConfirmationOptions{JSONMode: true, Interactive: true}, false, true},
		{"not a terminal", "y\n", ConfirmationOptions{}, false, true},
		{"yes", "y\n", ConfirmationOptions{Interactive: true}, true, false},
		{"YES", "YES\n", ConfirmationOptions{Interactive: true}, true, false},
		{"no", "n\n", ConfirmationOptions{Interactive: true}, false, false},
		{"empty", "\n", ConfirmationOptions{Interactive: true}, false, false},
		{"eof", "", ConfirmationOptions{Interactive: true}, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := RequireConfirmation(strings.NewReader(tt.input), &out, "delete it", tt.opts)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireConfirmation() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RequireConfirmation() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// ARCHIVE HELPERS
// =============================================================================

func TestResolveEntry(t *testing.T) {
	entries := []archive.Entry{
		sampleEntry("2025-05-01T09:00:02.000000000Z", persona.Rude, "b"),
		sampleEntry("2025-05-01T09:00:01.000000000Z", persona.Open, "a"),
	}

	e, err := resolveEntry(entries, "2")
	require.NoError(t, err)
	assert.Equal(t, persona.Open, e.PersonaID)

	e, err = resolveEntry(entries, "2025-05-01T09:00:02.000000000Z")
	require.NoError(t, err)
	assert.Equal(t, persona.Rude, e.PersonaID)

	for _, ref := range []string{"0", "3", "nope"} {
		_, err := resolveEntry(entries, ref)
		var nf *NotFoundError
		assert.True(t, errors.As(err, &nf), "ref %q", ref)
	}
}

func TestExportImport_RoundTrip(t *testing.T) {
	fixedClock(t)
	ctx := context.Background()
	dir := t.TempDir()

	src := archive.NewMemoryStore()
	defer src.Close()
	require.NoError(t, src.Put(ctx, sampleEntry(archive.FormatID(timeNow()), persona.Open, "first", "reply")))
	require.NoError(t, src.Put(ctx, sampleEntry(archive.FormatID(timeNow()), persona.Guarded, "second")))
	entries, err := loadEntries(ctx, src)
	require.NoError(t, err)

	// Full archive.
	path, err := exportEntries(entries, nil, dir, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(path), "chat_archive_export_"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	dst := archive.NewMemoryStore()
	defer dst.Close()
	ids, err := importData(ctx, dst, data)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{entries[0].ID, entries[1].ID}, ids)

	got, err := loadEntries(ctx, dst)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, persona.Guarded, got[0].PersonaID)
	assert.Equal(t, "second", got[0].Messages[1].Text)

	// Single chat as JSON becomes a new entry.
	path, err = exportEntries(entries, []string{"2"}, dir, "json")
	require.NoError(t, err)
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	ids, err = importData(ctx, dst, data)
	require.NoError(t, err)
	require.Len(t, ids, 1)

	got, err = loadEntries(ctx, dst)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, persona.Open, got[0].PersonaID)
	assert.Equal(t, "first", got[0].Messages[1].Text)
}

func TestExportEntries_Markdown(t *testing.T) {
	fixedClock(t)
	entries := []archive.Entry{sampleEntry(archive.FormatID(timeNow()), persona.Open, "hello there")}

	path, err := exportEntries(entries, []string{"1"}, t.TempDir(), "md")
	require.NoError(t, err)
	assert.Equal(t, ".md", filepath.Ext(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello there")

	_, err = exportEntries(entries, []string{"1"}, t.TempDir(), "pdf")
	var ue *UsageError
	assert.True(t, errors.As(err, &ue))
}

func TestImportData_Rejects(t *testing.T) {
	store := archive.NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	_, err := importData(ctx, store, []byte("not json"))
	assert.True(t, errors.Is(err, export.ErrNotJSON))

	_, err = importData(ctx, store, []byte(`{"difficulty":"Open"}`))
	assert.True(t, errors.Is(err, export.ErrNoChatHistory))

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

// =============================================================================
// COMMANDS
// =============================================================================

func TestArchiveCommands(t *testing.T) {
	fixedClock(t)
	cfgPath, archiveDir := testConfig(t)

	store, err := archive.OpenDir(archiveDir)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), sampleEntry(archive.FormatID(timeNow()), persona.Open, "older chat")))
	require.NoError(t, store.Put(context.Background(), sampleEntry(archive.FormatID(timeNow()), persona.Rude, "newer chat")))
	require.NoError(t, store.Close())

	out, err := run(t, "--config", cfgPath, "--json", "archive", "list")
	require.NoError(t, err)
	env := decodeEnvelope(t, out)
	assert.True(t, env.Success)
	var rows []archiveRow
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "newer chat", rows[0].Preview)
	assert.Equal(t, persona.Rude, rows[0].PersonaID)

	out, err = run(t, "--config", cfgPath, "archive", "show", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "older chat")

	_, err = run(t, "--config", cfgPath, "archive", "show", "9")
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))

	// Piped stdin cannot confirm.
	_, err = run(t, "--config", cfgPath, "archive", "delete", "1")
	var ue *UsageError
	require.True(t, errors.As(err, &ue))

	out, err = run(t, "--config", cfgPath, "archive", "delete", "1", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Chat deleted.")

	out, err = run(t, "--config", cfgPath, "--json", "archive", "list")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "older chat", rows[0].Preview)
}

func TestPersonasCommand(t *testing.T) {
	testConfig(t)
	out, err := run(t, "--json", "personas")
	require.NoError(t, err)

	var listings []persona.Listing
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &listings))
	require.NotEmpty(t, listings)
	assert.Equal(t, persona.DefaultID, listings[0].ID)

	out, err = run(t, "personas")
	require.NoError(t, err)
	assert.Contains(t, out, persona.Philosopher)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "--json", "version")
	require.NoError(t, err)
	var info versionInfo
	require.NoError(t, json.Unmarshal(decodeEnvelope(t, out).Data, &info))
	assert.Equal(t, Version, info.Version)
}

func TestChatCommand_RequiresTerminal(t *testing.T) {
	testConfig(t)
	_, err := run(t, "chat")
	var tty *TTYRequiredError
	assert.True(t, errors.As(err, &tty))
}
