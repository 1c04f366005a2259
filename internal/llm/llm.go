// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package llm abstracts the hosted generation API: a system prompt and an
// ordered history go in, reply text comes out.
package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the provider answers without any text.
var ErrEmptyResponse = errors.New("generation returned no content")

// Role is the author of a history entry as the provider sees it.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of provider-facing history.
type Message struct {
	Role    Role
	Content string
}

// Params are sampling settings. Zero values leave the provider default.
type Params struct {
	Temperature float32
	MaxTokens   int
	TopP        float32
}

// Request is a single stateless generation call.
type Request struct {
	System   string
	Messages []Message
	Params   Params
}

// Response carries the generated text and token accounting when the
// provider reports it.
type Response struct {
	Content          string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Generator is implemented by every provider.
type Generator interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, req Request) (Response, error)

// Generate calls f.
func (f GeneratorFunc) Generate(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}
