// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := now
	now = func() time.Time { return at }
	t.Cleanup(func() { now = prev })
}

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewMessage_StampsUTC(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3*3600))
	fixedClock(t, at)

	msg := NewUserMessage("Hello")
	if msg.Sender != SenderUser {
		t.Errorf("Sender = %v, want %v", msg.Sender, SenderUser)
	}
	if !msg.Timestamp.Equal(at) || msg.Timestamp.Location() != time.UTC {
		t.Errorf("Timestamp = %v, want %v in UTC", msg.Timestamp, at)
	}
}

func TestNewErrorMessage(t *testing.T) {
	msg := NewErrorMessage("Connection problem.")
	if !msg.IsError {
		t.Error("IsError = false, want true")
	}
	if msg.Sender != SenderModel {
		t.Errorf("Sender = %v, want %v", msg.Sender, SenderModel)
	}
	if !strings.HasPrefix(msg.Text, ErrorPrefix) {
		t.Errorf("Text = %q, want prefix %q", msg.Text, ErrorPrefix)
	}
}

func TestMessage_JSONRoundTrip(t *testing.T) {
	fixedClock(t, time.Date(2025, 3, 1, 10, 0, 0, 123, time.UTC))
	orig := NewErrorMessage("boom")

	data, err := json.Marshal(orig)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"sender":"model"`)
	assert.Contains(t, string(data), `"isError":true`)

	var got Message
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, orig, got)
}

func TestMessage_UnmarshalLegacy(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		sender Sender
		clock  string
		zero   bool
	}{
		{
			name:   "browser clock-only timestamp",
			input:  `{"text":"hi","sender":"user","timestamp":"14:05:09"}`,
			sender: SenderUser,
			clock:  "14:05:09",
		},
		{
			name:   "role instead of sender",
			input:  `{"text":"hi","role":"model","timestamp":"2025-01-02T03:04:05Z"}`,
			sender: SenderModel,
		},
		{
			name:   "unparseable timestamp",
			input:  `{"text":"hi","sender":"user","timestamp":"yesterday"}`,
			sender: SenderUser,
			zero:   true,
		},
		{
			name:   "missing timestamp",
			input:  `{"text":"hi","sender":"user"}`,
			sender: SenderUser,
			zero:   true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var msg Message
			require.NoError(t, json.Unmarshal([]byte(tc.input), &msg))
			assert.Equal(t, tc.sender, msg.Sender)
			assert.Equal(t, "hi", msg.Text)
			if tc.zero {
				assert.True(t, msg.Timestamp.IsZero())
			}
			if tc.clock != "" {
				assert.Equal(t, tc.clock, msg.Timestamp.Format(clockLayout))
			}
		})
	}
}

func TestMessage_UnmarshalRejectsUnknownSender(t *testing.T) {
	var msg Message
	err := json.Unmarshal([]byte(`{"text":"x","sender":"system"}`), &msg)
	if err == nil {
		t.Fatal("expected error for unknown sender")
	}
}

func TestMessage_IsGreeting(t *testing.T) {
	if !NewGreeting().IsGreeting() {
		t.Error("NewGreeting().IsGreeting() = false, want true")
	}
	if NewUserMessage(GreetingText).IsGreeting() {
		t.Error("user message reported as greeting")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestNewConversation(t *testing.T) {
	conv := NewConversation("Open")
	if conv.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", conv.Len())
	}
	if conv.PersonaID != "Open" {
		t.Errorf("PersonaID = %q, want %q", conv.PersonaID, "Open")
	}
	if !conv.Messages[0].IsGreeting() {
		t.Error("first message is not the greeting")
	}
}

func TestConversation_DialogueSkipsErrors(t *testing.T) {
	conv := NewConversation("Open")
	conv.Append(NewUserMessage("Hello"))
	conv.Append(NewErrorMessage("Connection problem."))
	conv.Append(NewUserMessage("Still there?"))

	got := conv.Dialogue()
	require.Len(t, got, 3)
	for _, m := range got {
		assert.False(t, m.IsError)
	}
	assert.Equal(t, 4, conv.Len(), "Dialogue must not modify the log")
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	conv := NewConversation("Open")
	conv.Append(NewUserMessage("Hello"))

	snap := conv.Clone()
	conv.Append(NewModelMessage("Hi there"))
	conv.Messages[1].Text = "changed"
	conv.PersonaID = "Rude"

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, "Hello", snap.Messages[1].Text)
	assert.Equal(t, "Open", snap.PersonaID)
}

func TestConversation_Replace(t *testing.T) {
	conv := NewConversation("Open")
	src := []Message{NewGreeting(), NewUserMessage("old chat")}

	conv.Replace("Taciturn", src)
	src[1].Text = "mutated"

	assert.Equal(t, "Taciturn", conv.PersonaID)
	assert.Equal(t, "old chat", conv.Messages[1].Text)
}

func TestConversation_PruneKeepsGreeting(t *testing.T) {
	conv := NewConversation("Open")
	for i := 0; i < MaxMessages+10; i++ {
		conv.Append(NewUserMessage("x"))
	}

	if conv.Len() != MaxMessages {
		t.Errorf("Len() = %d, want %d", conv.Len(), MaxMessages)
	}
	if !conv.Messages[0].IsGreeting() {
		t.Error("greeting was pruned")
	}
}

func TestConversation_Last(t *testing.T) {
	conv := &Conversation{}
	if _, ok := conv.Last(); ok {
		t.Error("Last() on empty log returned ok")
	}
	conv.Append(NewUserMessage("a"))
	last, ok := conv.Last()
	if !ok || last.Text != "a" {
		t.Errorf("Last() = %v, %v", last, ok)
	}
}

func TestConversation_ValueMethods(t *testing.T) {
	conv := NewConversation("Open")
	conv.Append(NewUserMessage("Hello"))

	snapshot := func() Conversation { return *conv.Clone() }
	assert.Equal(t, 2, snapshot().Len())
	last, ok := snapshot().Last()
	require.True(t, ok)
	assert.Equal(t, "Hello", last.Text)
	assert.Len(t, snapshot().Dialogue(), 2)
}

func TestConversation_Window(t *testing.T) {
	conv := NewConversation("Open")
	for i := 0; i < 10; i++ {
		conv.Append(NewUserMessage(fmt.Sprintf("msg %d", i)))
		conv.Append(NewErrorMessage("Connection problem."))
	}

	got := conv.Window(4, 0)
	require.Len(t, got, 4)
	assert.True(t, got[0].IsGreeting())
	assert.Equal(t, "msg 7", got[1].Text)
	assert.Equal(t, "msg 9", got[3].Text)
	for _, m := range got {
		assert.False(t, m.IsError)
	}

	assert.Len(t, conv.Window(0, 0), 11, "zero disables the turn bound")
	assert.Len(t, conv.Window(100, 0), 11)
}

func TestConversation_WindowCutsLongText(t *testing.T) {
	conv := NewConversation("Open")
	conv.Append(NewUserMessage(strings.Repeat("é", 20)))

	got := conv.Window(0, 5)
	assert.Equal(t, strings.Repeat("é", 5), got[1].Text)
	assert.Equal(t, strings.Repeat("é", 20), conv.Messages[1].Text, "the log keeps the full text")
}
