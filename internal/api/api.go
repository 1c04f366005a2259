// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api defines the JSON bodies exchanged between the chat client and
// the relay server.
//
// Endpoints:
//   - GET  /api/difficulties - persona listing
//   - POST /api/chat         - generate the partner's next reply
//   - POST /api/reset        - acknowledge a client-side reset
//   - GET  /health           - liveness
package api

import (
	"github.com/jeranaias/rolechat/internal/persona"
)

// Route paths.
const (
	PathDifficulties = "/api/difficulties"
	PathChat         = "/api/chat"
	PathReset        = "/api/reset"
	PathHealth       = "/health"
)

// Request limits enforced by the server. Clients window their history to
// fit.
const (
	// MaxHistoryTurns caps the number of history entries per chat request.
	MaxHistoryTurns = 200

	// MaxTurnLength caps the characters in a single history entry.
	MaxTurnLength = 10000
)

// ResetAck is the acknowledgement text returned by the reset endpoint.
const ResetAck = "Chat history reset"

// =============================================================================
// CHAT
// =============================================================================

// HistoryEntry is one turn of chat history. Browser clients send their
// stored messages as-is, so the author may arrive as "sender" rather than
// "role", and error notices may be included with isError set.
type HistoryEntry struct {
	Role    string `json:"role,omitempty"`
	Sender  string `json:"sender,omitempty"`
	Text    string `json:"text"`
	IsError bool   `json:"isError,omitempty"`
}

// Author returns Role, falling back to Sender.
func (h HistoryEntry) Author() string {
	if h.Role != "" {
		return h.Role
	}
	return h.Sender
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	History    []HistoryEntry `json:"history"`
	Difficulty string         `json:"difficulty,omitempty"`
}

// ChatResponse carries the generated reply verbatim.
type ChatResponse struct {
	Message string `json:"message"`
}

// =============================================================================
// LISTING, RESET, HEALTH, ERRORS
// =============================================================================

// DifficultiesResponse is the body of GET /api/difficulties.
type DifficultiesResponse struct {
	Difficulties []persona.Listing `json:"difficulties"`
}

// ResetResponse is the body of POST /api/reset.
type ResetResponse struct {
	Message string `json:"message"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Personas int    `json:"personas"`
}

// ErrorResponse is returned with every non-2xx status. Available is set
// when the request named an unknown persona.
type ErrorResponse struct {
	Error     string   `json:"error"`
	Available []string `json:"available,omitempty"`
}
