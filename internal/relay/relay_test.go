// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package relay

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/llm"
	"github.com/jeranaias/rolechat/internal/persona"
)

// fakeGenerator records the last request and returns a canned reply.
type fakeGenerator struct {
	mu    sync.Mutex
	reply string
	err   error
	delay time.Duration
	last  llm.Request
	calls int
}

func (f *fakeGenerator) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.mu.Lock()
	f.last = req
	f.calls++
	f.mu.Unlock()

	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return llm.Response{}, ctx.Err()
		}
	}
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.reply}, nil
}

func greetingThen(turns ...Turn) []Turn {
	return append([]Turn{{Author: AuthorModel, Text: "Hi! I'm your conversation partner."}}, turns...)
}

func TestReply_AllPersonasPassThrough(t *testing.T) {
	catalog := persona.Default()
	gen := &fakeGenerator{reply: "fixed reply"}
	svc := New(catalog, gen)

	for _, id := range catalog.IDs() {
		t.Run(id, func(t *testing.T) {
			got, err := svc.Reply(context.Background(), Request{
				PersonaID: id,
				History:   []Turn{{Author: AuthorUser, Text: "Hello"}},
			})
			require.NoError(t, err)
			assert.Equal(t, "fixed reply", got)

			profile, _ := catalog.Lookup(id)
			assert.Equal(t, catalog.SystemPrompt(profile), gen.last.System)
			assert.Equal(t, profile.Params().MaxTokens, gen.last.Params.MaxTokens)
		})
	}
}

func TestReply_UnknownPersona(t *testing.T) {
	catalog := persona.Default()
	gen := &fakeGenerator{reply: "x"}
	svc := New(catalog, gen)

	_, err := svc.Reply(context.Background(), Request{
		PersonaID: "NotARealProfile",
		History:   []Turn{{Author: AuthorUser, Text: "Hello"}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownPersona))

	var pe *PersonaError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, "NotARealProfile", pe.ID)
	assert.Equal(t, catalog.IDs(), pe.Valid)
	for _, id := range catalog.IDs() {
		assert.Contains(t, pe.Error(), id)
	}
	assert.Zero(t, gen.calls, "generator must not be called")
}

func TestReply_EmptyPersonaUsesDefault(t *testing.T) {
	gen := &fakeGenerator{reply: "x"}
	svc := New(persona.Default(), gen)

	_, err := svc.Reply(context.Background(), Request{History: []Turn{{Author: AuthorUser, Text: "Hi"}}})
	require.NoError(t, err)
	assert.Contains(t, gen.last.System, "YOUR PROFILE: You are generally open")
}

func TestReply_EmptyHistory(t *testing.T) {
	svc := New(persona.Default(), &fakeGenerator{reply: "x"})

	_, err := svc.Reply(context.Background(), Request{PersonaID: persona.Open, History: greetingThen()})
	assert.True(t, errors.Is(err, ErrEmptyHistory), "err = %v", err)
}

func TestReply_UpstreamFailureIsWrapped(t *testing.T) {
	upstream := errors.New("quota exceeded for key sk-secret")
	svc := New(persona.Default(), &fakeGenerator{err: upstream})

	_, err := svc.Reply(context.Background(), Request{
		PersonaID: persona.Rude,
		History:   greetingThen(Turn{Author: AuthorUser, Text: "Hello"}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, upstream))
}

func TestReply_Timeout(t *testing.T) {
	gen := &fakeGenerator{reply: "late", delay: time.Second}
	svc := New(persona.Default(), gen, WithTimeout(20*time.Millisecond))

	_, err := svc.Reply(context.Background(), Request{
		PersonaID: persona.Open,
		History:   []Turn{{Author: AuthorUser, Text: "Hello"}},
	})
	assert.True(t, errors.Is(err, ErrUpstream))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestMapHistory(t *testing.T) {
	turns := greetingThen(
		Turn{Author: AuthorUser, Text: "Hello"},
		Turn{Author: AuthorModel, Text: "❌ Connection problem.", IsError: true},
		Turn{Author: AuthorUser, Text: "Anyone?"},
		Turn{Author: AuthorModel, Text: "Yes"},
	)

	got := MapHistory(turns)
	want := []llm.Message{
		{Role: llm.RoleUser, Content: "Hello"},
		{Role: llm.RoleUser, Content: "Anyone?"},
		{Role: llm.RoleAssistant, Content: "Yes"},
	}
	assert.Equal(t, want, got)
}

func TestMapHistory_KeepsLeadingUserTurn(t *testing.T) {
	got := MapHistory([]Turn{{Author: AuthorUser, Text: "first"}, {Author: "assistant", Text: "reply"}})
	require.Len(t, got, 2)
	assert.Equal(t, llm.RoleUser, got[0].Role)
	assert.Equal(t, llm.RoleAssistant, got[1].Role)
}

func TestPersonaError_Message(t *testing.T) {
	err := &PersonaError{ID: "X", Valid: []string{"A", "B"}}
	if !strings.Contains(err.Error(), "Available: A, B") {
		t.Errorf("Error() = %q, want list of valid ids", err.Error())
	}
}
