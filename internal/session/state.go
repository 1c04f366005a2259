// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"fmt"

	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
)

// =============================================================================
// PHASE
// =============================================================================

// Phase is the send lifecycle of the live session.
type Phase int

const (
	// PhaseIdle accepts new sends.
	PhaseIdle Phase = iota

	// PhaseAwaitingReply has one relay call outstanding.
	PhaseAwaitingReply
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaitingReply:
		return "awaiting_reply"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// next validates a phase change.
func (p Phase) next(to Phase) (Phase, error) {
	switch {
	case p == PhaseIdle && to == PhaseAwaitingReply,
		p == PhaseAwaitingReply && to == PhaseIdle:
		return to, nil
	}
	return p, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p, to)
}

// =============================================================================
// VIEWING
// =============================================================================

// Source says where a viewed conversation came from.
type Source int

const (
	SourceArchive Source = iota
	SourceImport
)

// String returns the source name.
func (s Source) String() string {
	if s == SourceImport {
		return "import"
	}
	return "archive"
}

// View is a read-only conversation opened beside the live one.
type View struct {
	Source    Source
	EntryID   string // empty for imports
	PersonaID string
	Messages  []model.Message
}

func (v *View) clone() *View {
	if v == nil {
		return nil
	}
	c := *v
	c.Messages = model.CloneMessages(v.Messages)
	return &c
}

// =============================================================================
// STATE
// =============================================================================

// State is everything the client renders. Values returned by
// Controller.Snapshot share no memory with the controller.
type State struct {
	Session  model.Conversation
	Input    string
	Phase    Phase
	Banner   string // transient send failure text
	Status   string // persistence and import feedback
	Warning  string // non-fatal catalog warning
	Personas []persona.Listing
	Viewing  *View
}

// AwaitingReply reports whether a send is outstanding.
func (s State) AwaitingReply() bool {
	return s.Phase == PhaseAwaitingReply
}

// HasPersona reports whether id is in the loaded listing.
func (s State) HasPersona(id string) bool {
	for _, l := range s.Personas {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (s State) clone() State {
	c := s
	c.Session = *s.Session.Clone()
	c.Personas = cloneListings(s.Personas)
	c.Viewing = s.Viewing.clone()
	return c
}

func cloneListings(in []persona.Listing) []persona.Listing {
	if in == nil {
		return nil
	}
	out := make([]persona.Listing, len(in))
	for i, l := range in {
		out[i] = l
		out[i].Phrases = append([]string(nil), l.Phrases...)
	}
	return out
}
