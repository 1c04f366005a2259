// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
	"github.com/jeranaias/rolechat/internal/session"
	"github.com/jeranaias/rolechat/internal/ui/styles"
)

type stubRelay struct {
	reply string
	err   error
}

func (s *stubRelay) Personas(ctx context.Context) ([]persona.Listing, error) {
	return persona.Fallback(), nil
}

func (s *stubRelay) Chat(ctx context.Context, personaID string, history []model.Message) (string, error) {
	return s.reply, s.err
}

func (s *stubRelay) Reset(ctx context.Context) error { return nil }

// gatedRelay holds every Chat call until gate is closed.
type gatedRelay struct {
	stubRelay
	gate    chan struct{}
	started chan struct{}
}

func (g *gatedRelay) Chat(ctx context.Context, personaID string, history []model.Message) (string, error) {
	g.started <- struct{}{}
	<-g.gate
	return g.reply, g.err
}

func newTestModel(t *testing.T, relay session.Relay) (Model, *session.Controller) {
	t.Helper()
	store := archive.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	ctrl := session.New(relay, store,
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithExportDir(t.TempDir()),
	)
	return New(context.Background(), ctrl, styles.NewThemeFor(termenv.Ascii, true)), ctrl
}

// drain runs cmd and any batched commands it returns.
func drain(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, drain(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

func submit(m Model, text string) (Model, tea.Cmd) {
	m.input.SetValue(text)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	return updated.(Model), cmd
}

// deliver feeds every message produced by cmd back into m, following up on
// any commands those updates return.
func deliver(m Model, cmd tea.Cmd) Model {
	for _, msg := range drain(cmd) {
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		updated, next := m.Update(msg)
		m = updated.(Model)
		if _, ok := msg.(opDoneMsg); ok && next != nil {
			m = deliver(m, next)
		}
	}
	return m
}

func TestParseIndex(t *testing.T) {
	tests := []struct {
		args    []string
		n       int
		want    int
		problem bool
	}{
		{[]string{"1"}, 3, 0, false},
		{[]string{"3"}, 3, 2, false},
		{[]string{"0"}, 3, 0, true},
		{[]string{"4"}, 3, 0, true},
		{[]string{"x"}, 3, 0, true},
		{nil, 3, 0, true},
		{[]string{"1", "2"}, 3, 0, true},
		{[]string{"1"}, 0, 0, true},
	}
	for _, tt := range tests {
		got, problem := parseIndex(tt.args, tt.n)
		if (problem != "") != tt.problem {
			t.Errorf("parseIndex(%v, %d) problem = %q, want problem %v", tt.args, tt.n, problem, tt.problem)
			continue
		}
		if !tt.problem && got != tt.want {
			t.Errorf("parseIndex(%v, %d) = %d, want %d", tt.args, tt.n, got, tt.want)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	m, _ := newTestModel(t, &stubRelay{})
	m, cmd := submit(m, "/frobnicate")
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "Unknown command: /frobnicate")
}

func TestSubmit_SendsAndRendersReply(t *testing.T) {
	m, ctrl := newTestModel(t, &stubRelay{reply: "Hi yourself."})

	m, cmd := submit(m, "Hello there")
	require.NotNil(t, cmd)
	assert.True(t, m.sending)
	assert.Empty(t, m.input.Value())

	m = deliver(m, cmd)
	assert.False(t, m.sending)

	st := ctrl.Snapshot()
	require.Equal(t, 3, st.Session.Len())
	last, _ := st.Session.Last()
	assert.Equal(t, "Hi yourself.", last.Text)

	out := m.renderContent(st)
	assert.Contains(t, out, "You")
	assert.Contains(t, out, "Partner")
	assert.Contains(t, out, "Hi yourself.")
}

func TestSubmit_BlankIgnored(t *testing.T) {
	m, ctrl := newTestModel(t, &stubRelay{})
	m, cmd := submit(m, "   ")
	assert.Nil(t, cmd)
	assert.False(t, m.sending)
	assert.Equal(t, 1, ctrl.Snapshot().Session.Len())
}

func TestSubmit_BlockedWhileSending(t *testing.T) {
	m, _ := newTestModel(t, &stubRelay{reply: "ok"})
	m, first := submit(m, "one")
	require.NotNil(t, first)

	m, second := submit(m, "two")
	assert.Nil(t, second)
	assert.Contains(t, m.notice, "Wait for the reply")
	assert.Equal(t, "two", m.input.Value())
}

func TestReply_StaleSequenceIgnored(t *testing.T) {
	m, _ := newTestModel(t, &stubRelay{})
	m.sending = true
	m.sendSeq = 2

	updated, _ := m.Update(replyMsg{seq: 1})
	m = updated.(Model)
	assert.True(t, m.sending)

	updated, _ = m.Update(replyMsg{seq: 2})
	m = updated.(Model)
	assert.False(t, m.sending)
}

func TestPersonaCommand(t *testing.T) {
	m, ctrl := newTestModel(t, &stubRelay{})

	m, _ = submit(m, "/persona "+persona.Rude)
	assert.Equal(t, persona.Rude, ctrl.Snapshot().Session.PersonaID)
	assert.Equal(t, "Persona: "+persona.Rude, m.notice)

	m, _ = submit(m, "/persona Nobody")
	assert.Equal(t, persona.Rude, ctrl.Snapshot().Session.PersonaID)
	assert.Contains(t, m.notice, "Unknown persona")

	m, _ = submit(m, "/personas")
	assert.Equal(t, panelPersonas, m.panel)
	assert.Contains(t, m.renderContent(ctrl.Snapshot()), "> "+persona.Rude)
}

func TestSaveViewResume(t *testing.T) {
	m, ctrl := newTestModel(t, &stubRelay{reply: "Sure."})
	m = deliver(submit(m, "Remember this"))

	m = deliver(submit(m, "/save"))
	require.Len(t, m.entries, 1)
	assert.Equal(t, session.StatusSaved, ctrl.Snapshot().Status)

	m = deliver(submit(m, "/archive"))
	assert.Equal(t, panelArchive, m.panel)
	assert.Contains(t, m.renderContent(ctrl.Snapshot()), "Remember this")

	m, _ = submit(m, "/reset")
	m = deliver(submit(m, "/view 1"))
	st := ctrl.Snapshot()
	require.NotNil(t, st.Viewing)
	assert.Equal(t, panelNone, m.panel)
	assert.Contains(t, m.renderContent(st), "Viewing saved chat")

	m, cmd := submit(m, "Not allowed while viewing")
	assert.Nil(t, cmd)
	assert.Contains(t, m.notice, "/resume")

	m, _ = submit(m, "/resume")
	st = ctrl.Snapshot()
	assert.Nil(t, st.Viewing)
	assert.Equal(t, 3, st.Session.Len())
	assert.Equal(t, "Chat resumed.", m.notice)
}

func TestDeleteCommand(t *testing.T) {
	m, ctrl := newTestModel(t, &stubRelay{})
	m = deliver(submit(m, "/save"))
	require.Len(t, m.entries, 1)

	m = deliver(submit(m, "/delete 1"))
	assert.Empty(t, m.entries)
	assert.Equal(t, session.StatusDeleted, ctrl.Snapshot().Status)

	m, _ = submit(m, "/delete 1")
	assert.Contains(t, m.notice, "archive is empty")
}

func TestReset_AcceptsSendDuringPendingReply(t *testing.T) {
	relay := &gatedRelay{stubRelay: stubRelay{reply: "fresh"}, gate: make(chan struct{}), started: make(chan struct{}, 2)}
	m, ctrl := newTestModel(t, relay)

	m, first := submit(m, "first")
	require.NotNil(t, first)
	firstDone := make(chan []tea.Msg, 1)
	go func() { firstDone <- drain(first) }()
	<-relay.started
	require.True(t, ctrl.AwaitingReply())

	m, _ = submit(m, "/reset")
	assert.False(t, m.sending)
	assert.False(t, ctrl.AwaitingReply())
	assert.Equal(t, "Conversation reset.", m.notice)

	m, second := submit(m, "second")
	require.NotNil(t, second)
	close(relay.gate)

	var reply replyMsg
	for _, msg := range drain(second) {
		if r, ok := msg.(replyMsg); ok {
			reply = r
		}
	}
	assert.NoError(t, reply.err)
	for _, msg := range <-firstDone {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	updated, _ := m.Update(reply)
	m = updated.(Model)
	assert.False(t, m.sending)

	st := ctrl.Snapshot()
	require.Equal(t, 3, st.Session.Len())
	assert.Equal(t, "second", st.Session.Messages[1].Text)
	assert.Equal(t, "fresh", st.Session.Messages[2].Text)
}

func TestArchiveChange_RefreshesOpenPanel(t *testing.T) {
	store := archive.NewMemoryStore()
	defer store.Close()
	ctrl := session.New(&stubRelay{}, store,
		session.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		session.WithExportDir(t.TempDir()),
	)
	changes := make(chan struct{}, 1)
	m := New(context.Background(), ctrl, styles.NewThemeFor(termenv.Ascii, true), WithArchiveChanges(changes))

	m = deliver(submit(m, "/archive"))
	require.Equal(t, panelArchive, m.panel)
	assert.Empty(t, m.entries)

	conv := model.NewConversation(persona.Open)
	conv.Append(model.NewUserMessage("saved elsewhere"))
	require.NoError(t, store.Put(context.Background(), archive.NewEntry(conv, time.Now())))

	changes <- struct{}{}
	msg := waitForArchiveChange(changes)()
	require.IsType(t, archiveChangedMsg{}, msg)
	close(changes)

	updated, cmd := m.Update(msg)
	m = deliver(updated.(Model), cmd)
	require.Len(t, m.entries, 1)
	assert.Equal(t, panelArchive, m.panel)
	assert.Contains(t, m.renderContent(ctrl.Snapshot()), "saved elsewhere")
}

func TestWaitForArchiveChange_NilChannel(t *testing.T) {
	assert.Nil(t, waitForArchiveChange(nil))
}

func TestBackClosesPanel(t *testing.T) {
	m, _ := newTestModel(t, &stubRelay{})
	m, _ = submit(m, "/help")
	assert.Equal(t, panelHelp, m.panel)

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = updated.(Model)
	assert.Equal(t, panelNone, m.panel)
}

func TestView(t *testing.T) {
	m, _ := newTestModel(t, &stubRelay{})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m = updated.(Model)

	out := m.View()
	assert.Contains(t, out, "rolechat")
	assert.Contains(t, out, "with Open")
	if lines := strings.Count(out, "\n"); lines > 30 {
		t.Errorf("View() has %d lines, want at most 30", lines)
	}

	m, cmd := submit(m, "/quit")
	require.NotNil(t, cmd)
	assert.Empty(t, m.View())
}
