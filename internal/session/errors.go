// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/jeranaias/rolechat/internal/client"
)

var (
	// ErrEmptyMessage rejects blank sends.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong rejects a send longer than the server accepts.
	ErrMessageTooLong = errors.New("message is too long")

	// ErrSendInFlight rejects a send while another is outstanding.
	ErrSendInFlight = errors.New("a reply is already pending")

	// ErrNoViewedSession means resume or close was called with nothing open.
	ErrNoViewedSession = errors.New("no conversation is being viewed")

	// ErrInvalidTransition reports a phase change the state machine forbids.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrUnknownPersona means the id is not in the loaded listing.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrNoSuchEntry means the archive has no entry with the given id.
	ErrNoSuchEntry = errors.New("archive entry not found")
)

// User-facing failure descriptions.
const (
	MsgGeneric    = "An error occurred while sending the message. Please try again."
	MsgConnection = "Connection problem. Make sure the server is running."
	MsgOverloaded = "The server is overloaded. Please try again in a minute."
	MsgTimeout    = "Your partner took too long to answer. Please try again."
)

// Status lines.
const (
	StatusSaved         = "Chat saved."
	StatusDeleted       = "Chat deleted."
	StatusExported      = "Export complete."
	StatusNotFound      = "Chat not found."
	StatusNoChatHistory = "Error: file does not contain a chat history."
	StatusNotJSON       = "Error: could not read JSON file."
)

// WarningFallbackPersonas is shown when the catalog could not be fetched.
const WarningFallbackPersonas = "Could not load personas from the server. Using built-in ones."

// Describe turns a relay failure into text a user can act on. Server-provided
// error text wins, then transport problems, then status codes.
func Describe(err error) string {
	if err == nil {
		return ""
	}

	var se *client.StatusError
	if errors.As(err, &se) && se.Message != "" {
		return "Error: " + se.Message
	}

	var te *client.TransportError
	if errors.As(err, &te) {
		if te.Timeout() {
			return MsgTimeout
		}
		return MsgConnection
	}

	if se != nil && se.Code == http.StatusServiceUnavailable {
		return MsgOverloaded
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return MsgTimeout
	}
	return MsgGeneric
}
