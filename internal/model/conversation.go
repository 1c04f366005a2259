// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import "unicode/utf8"

// MaxMessages bounds the live log; the oldest dialogue is pruned past it,
// keeping the greeting.
const MaxMessages = 1000

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the live session: an ordered message log and the persona
// that shapes future replies.
type Conversation struct {
	PersonaID string    `json:"difficulty"`
	Messages  []Message `json:"chatHistory"`
}

// NewConversation starts a conversation with a single greeting.
func NewConversation(personaID string) *Conversation {
	return &Conversation{
		PersonaID: personaID,
		Messages:  []Message{NewGreeting()},
	}
}

// =============================================================================
// MESSAGE MANAGEMENT
// =============================================================================

// Append adds msg to the end of the log.
func (c *Conversation) Append(msg Message) {
	c.Messages = append(c.Messages, msg)
	c.prune()
}

// Len returns the number of messages in the log.
func (c Conversation) Len() int {
	return len(c.Messages)
}

// Last returns the most recent message and false if the log is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[len(c.Messages)-1], true
}

// Dialogue returns a copy of the log with error notices removed. This is
// the history the relay may see.
func (c Conversation) Dialogue() []Message {
	out := make([]Message, 0, len(c.Messages))
	for _, m := range c.Messages {
		if m.IsError {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Window returns the dialogue as the relay should receive it: at most
// maxTurns entries, keeping the first one and the most recent rest, with
// each text cut to maxRunes. Zero disables a bound.
func (c Conversation) Window(maxTurns, maxRunes int) []Message {
	out := c.Dialogue()
	if maxTurns > 0 && len(out) > maxTurns {
		kept := make([]Message, 0, maxTurns)
		kept = append(kept, out[0])
		kept = append(kept, out[len(out)-maxTurns+1:]...)
		out = kept
	}
	if maxRunes > 0 {
		for i := range out {
			if utf8.RuneCountInString(out[i].Text) > maxRunes {
				out[i].Text = string([]rune(out[i].Text)[:maxRunes])
			}
		}
	}
	return out
}

// Replace swaps the whole log and persona, copying messages so the caller's
// slice stays independent.
func (c *Conversation) Replace(personaID string, messages []Message) {
	c.PersonaID = personaID
	c.Messages = CloneMessages(messages)
}

// Clone returns a deep copy of the conversation.
func (c *Conversation) Clone() *Conversation {
	return &Conversation{
		PersonaID: c.PersonaID,
		Messages:  CloneMessages(c.Messages),
	}
}

// CloneMessages copies a message slice. Message holds no references, so a
// slice copy is a deep copy.
func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return out
}

// prune drops the oldest messages after the first once MaxMessages is
// exceeded.
func (c *Conversation) prune() {
	if len(c.Messages) <= MaxMessages {
		return
	}
	excess := len(c.Messages) - MaxMessages
	pruned := make([]Message, 0, MaxMessages)
	pruned = append(pruned, c.Messages[0])
	pruned = append(pruned, c.Messages[1+excess:]...)
	c.Messages = pruned
}
