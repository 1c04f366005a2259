// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for role-play conversations.
//
// # Key Types
//
//   - Message: one utterance with sender, text, timestamp and error flag
//   - Sender: who produced a message (user or model)
//   - Conversation: the ordered message log plus the selected persona
//
// The JSON shape of Message matches the browser client's chat history
// records, so transcripts exported by either client can be imported by the
// other.
//
// # Usage
//
//	conv := model.NewConversation("Open")
//	conv.Append(model.NewUserMessage("Hello"))
//	history := conv.Dialogue() // messages safe to send to the relay
package model
