// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package relay turns a chat history plus persona id into a generation call
// and returns the reply. It keeps no conversation state between calls.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jeranaias/rolechat/internal/llm"
	"github.com/jeranaias/rolechat/internal/persona"
)

// DefaultTimeout bounds a single generation call.
const DefaultTimeout = 60 * time.Second

var (
	// ErrUnknownPersona is wrapped by *PersonaError.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrEmptyHistory means no dialogue remained after mapping.
	ErrEmptyHistory = errors.New("history contains no dialogue")

	// ErrUpstream wraps any failure of the generation API.
	ErrUpstream = errors.New("generation failed")
)

// PersonaError reports a persona id missing from the catalog.
type PersonaError struct {
	ID    string
	Valid []string
}

func (e *PersonaError) Error() string {
	return fmt.Sprintf("unsupported difficulty %q. Available: %s", e.ID, strings.Join(e.Valid, ", "))
}

// Unwrap returns ErrUnknownPersona.
func (e *PersonaError) Unwrap() error {
	return ErrUnknownPersona
}

// Author values accepted in history.
const (
	AuthorUser  = "user"
	AuthorModel = "model"
)

// Turn is one history entry as received from a client.
type Turn struct {
	Author  string
	Text    string
	IsError bool
}

// Request is a single relay call.
type Request struct {
	PersonaID string
	History   []Turn
}

// Service is the conversation relay.
type Service struct {
	catalog   *persona.Catalog
	generator llm.Generator
	timeout   time.Duration
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout overrides DefaultTimeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger sets the logger used for upstream failures.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a relay over catalog and generator.
func New(catalog *persona.Catalog, generator llm.Generator, opts ...Option) *Service {
	s := &Service{
		catalog:   catalog,
		generator: generator,
		timeout:   DefaultTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the persona catalog the service validates against.
func (s *Service) Catalog() *persona.Catalog {
	return s.catalog
}

// Reply generates the persona's next message. An empty PersonaID selects
// the catalog default.
func (s *Service) Reply(ctx context.Context, req Request) (string, error) {
	id := req.PersonaID
	if strings.TrimSpace(id) == "" {
		id = s.catalog.DefaultID()
	}
	profile, ok := s.catalog.Lookup(id)
	if !ok {
		return "", &PersonaError{ID: id, Valid: s.catalog.IDs()}
	}

	history := MapHistory(req.History)
	if len(history) == 0 {
		return "", ErrEmptyHistory
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	p := profile.Params()
	start := time.Now()
	resp, err := s.generator.Generate(ctx, llm.Request{
		System:   s.catalog.SystemPrompt(profile),
		Messages: history,
		Params: llm.Params{
			Temperature: p.Temperature,
			MaxTokens:   p.MaxTokens,
			TopP:        p.TopP,
		},
	})
	if err != nil {
		s.logger.Error("CHAT_UPSTREAM_ERROR",
			"persona", profile.ID,
			"turns", len(history),
			"duration", time.Since(start),
			"error", err)
		return "", fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	s.logger.Debug("CHAT_REPLY",
		"persona", profile.ID,
		"turns", len(history),
		"tokens", resp.TotalTokens,
		"duration", time.Since(start))
	return resp.Content, nil
}

// MapHistory converts client history to provider messages. Error notices
// are dropped, and a model-authored first entry is dropped as the
// client's synthetic greeting. Any author other than "user" is treated as
// the model.
func MapHistory(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for i, t := range turns {
		if t.IsError {
			continue
		}
		isUser := t.Author == AuthorUser
		if i == 0 && !isUser {
			continue
		}
		role := llm.RoleAssistant
		if isUser {
			role = llm.RoleUser
		}
		out = append(out, llm.Message{Role: role, Content: t.Text})
	}
	return out
}
