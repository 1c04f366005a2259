// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
)

func TestClient_Personas(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, api.PathDifficulties, r.URL.Path)
		_ = json.NewEncoder(w).Encode(api.DifficultiesResponse{Difficulties: persona.Default().Listings()})
	}))
	defer srv.Close()

	got, err := New(srv.URL + "/").Personas(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 8)
	assert.Equal(t, persona.Open, got[0].ID)
}

func TestClient_ChatSendsDialogueOnly(t *testing.T) {
	var got api.ChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(api.ChatResponse{Message: "Hi there"})
	}))
	defer srv.Close()

	history := []model.Message{
		model.NewGreeting(),
		model.NewUserMessage("Hello"),
		model.NewErrorMessage("Connection problem."),
	}
	reply, err := New(srv.URL).Chat(context.Background(), persona.Rude, history)
	require.NoError(t, err)
	assert.Equal(t, "Hi there", reply)

	assert.Equal(t, persona.Rude, got.Difficulty)
	require.Len(t, got.History, 2)
	assert.Equal(t, "model", got.History[0].Role)
	assert.Equal(t, "user", got.History[1].Role)
	assert.Equal(t, "Hello", got.History[1].Text)
}

func TestClient_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(api.ErrorResponse{Error: "unsupported difficulty"})
	}))
	defer srv.Close()

	_, err := New(srv.URL).Chat(context.Background(), "X", []model.Message{model.NewUserMessage("hi")})
	var se *StatusError
	require.True(t, errors.As(err, &se), "err = %v", err)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Equal(t, "unsupported difficulty", se.Message)
}

func TestClient_StatusErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL).Reset(context.Background())
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.Code)
	assert.Empty(t, se.Message)
}

func TestClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).Personas(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te), "err = %v", err)
	assert.False(t, te.Timeout())
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, WithTimeout(30*time.Millisecond)).Personas(context.Background())
	var te *TransportError
	require.True(t, errors.As(err, &te), "err = %v", err)
	assert.True(t, te.Timeout())
}

func TestClient_Health(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(api.HealthResponse{Status: "ok", Version: "1"})
	}))
	defer srv.Close()

	h, err := New(srv.URL).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)
}
