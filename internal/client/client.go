// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package client is the HTTP client for the relay server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/persona"
)

// DefaultTimeout bounds a whole request including the generation call.
const DefaultTimeout = 90 * time.Second

// maxResponseSize caps how much of a response body is read.
const maxResponseSize = 4 * 1024 * 1024

// =============================================================================
// ERRORS
// =============================================================================

// StatusError is a non-2xx answer from the server.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("server returned %d: %s", e.Code, e.Message)
}

// TransportError means the server could not be reached or the exchange
// broke off.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline.
func (e *TransportError) Timeout() bool {
	if errors.Is(e.Err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(e.Err, &ne) && ne.Timeout()
}

// =============================================================================
// CLIENT
// =============================================================================

// Client talks to one relay server.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http = &http.Client{Timeout: d}
		}
	}
}

// New creates a client for baseURL, e.g. "http://localhost:5001".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Personas fetches the persona listing.
func (c *Client) Personas(ctx context.Context) ([]persona.Listing, error) {
	var resp api.DifficultiesResponse
	if err := c.do(ctx, http.MethodGet, api.PathDifficulties, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Difficulties, nil
}

// Chat asks for the next reply. Error notices in history are not sent.
func (c *Client) Chat(ctx context.Context, personaID string, history []model.Message) (string, error) {
	req := api.ChatRequest{
		History:    make([]api.HistoryEntry, 0, len(history)),
		Difficulty: personaID,
	}
	for _, m := range history {
		if m.IsError {
			continue
		}
		req.History = append(req.History, api.HistoryEntry{Role: string(m.Sender), Text: m.Text})
	}

	var resp api.ChatResponse
	if err := c.do(ctx, http.MethodPost, api.PathChat, req, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Reset notifies the server of a client-side reset.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, api.PathReset, nil, nil)
}

// Health queries the liveness endpoint.
func (c *Client) Health(ctx context.Context) (api.HealthResponse, error) {
	var resp api.HealthResponse
	err := c.do(ctx, http.MethodGet, api.PathHealth, nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e api.ErrorResponse
		_ = json.Unmarshal(data, &e)
		return &StatusError{Code: resp.StatusCode, Message: e.Error}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
