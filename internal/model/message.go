// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// ErrorPrefix marks the text of synthesized error notices in the log.
const ErrorPrefix = "❌ "

// GreetingText is the synthetic opening line of every fresh conversation.
const GreetingText = "Hi! I'm your conversation partner. What would you like to talk about?"

// clockLayout is the clock-only timestamp the browser client stored.
const clockLayout = "15:04:05"

// now is replaced in tests.
var now = time.Now

// =============================================================================
// SENDER TYPE
// =============================================================================

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser  Sender = "user"
	SenderModel Sender = "model"
)

// String returns the string representation of the sender.
func (s Sender) String() string {
	return string(s)
}

// Valid reports whether s is one of the known senders.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderModel
}

// DisplayName returns a human-readable name for the sender.
func (s Sender) DisplayName() string {
	switch s {
	case SenderUser:
		return "You"
	case SenderModel:
		return "Partner"
	default:
		return string(s)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message is a single entry in a conversation log.
type Message struct {
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`

	// IsError marks a display-only notice that must never reach the
	// generation API as history.
	IsError bool `json:"isError,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(sender Sender, text string) Message {
	// UTC drops the monotonic reading so values compare equal after a
	// JSON round trip.
	return Message{
		Text:      text,
		Sender:    sender,
		Timestamp: now().UTC(),
	}
}

// NewUserMessage creates a user message.
func NewUserMessage(text string) Message {
	return NewMessage(SenderUser, text)
}

// NewModelMessage creates a model reply.
func NewModelMessage(text string) Message {
	return NewMessage(SenderModel, text)
}

// NewErrorMessage creates a model-side error notice carrying description.
func NewErrorMessage(description string) Message {
	msg := NewMessage(SenderModel, ErrorPrefix+description)
	msg.IsError = true
	return msg
}

// NewGreeting creates the synthetic greeting that opens a conversation.
func NewGreeting() Message {
	return NewModelMessage(GreetingText)
}

// IsGreeting reports whether m is the synthetic opening line.
func (m Message) IsGreeting() bool {
	return m.Sender == SenderModel && !m.IsError && m.Text == GreetingText
}

// UnmarshalJSON accepts RFC 3339 timestamps as well as the clock-only
// "15:04:05" values written by the browser client. A clock-only value is
// placed on the zero date; an empty or unparseable one becomes the zero time.
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Text      string          `json:"text"`
		Sender    Sender          `json:"sender"`
		Role      Sender          `json:"role"`
		Timestamp json.RawMessage `json:"timestamp"`
		IsError   bool            `json:"isError"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	sender := raw.Sender
	if sender == "" {
		sender = raw.Role
	}
	if sender != "" && !sender.Valid() {
		return fmt.Errorf("unknown sender %q", sender)
	}

	*m = Message{
		Text:    raw.Text,
		Sender:  sender,
		IsError: raw.IsError,
	}
	m.Timestamp = parseTimestamp(raw.Timestamp)
	return nil
}

func parseTimestamp(raw json.RawMessage) time.Time {
	if len(raw) == 0 {
		return time.Time{}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(clockLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

// Clock returns the wall clock time of day for display.
func (m Message) Clock() string {
	if m.Timestamp.IsZero() {
		return ""
	}
	return m.Timestamp.Local().Format(clockLayout)
}
