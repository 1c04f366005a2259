// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/relay"
)

// ============================================================================
// CONSTANTS
// ============================================================================

const (
	// DefaultPort is the port used when none is configured.
	DefaultPort = 5001

	// MaxHistoryTurns caps the number of history entries per chat request.
	MaxHistoryTurns = api.MaxHistoryTurns

	// MaxTurnLength caps the characters in a single history entry.
	MaxTurnLength = api.MaxTurnLength

	// MaxRequestBodySize caps a request body. It admits a full history of
	// full-length entries even when every character is JSON-escaped.
	MaxRequestBodySize = MaxHistoryTurns*(MaxTurnLength*6+256) + 4096

	// genericChatError is the only upstream failure text clients ever see.
	genericChatError = "An error occurred while talking to the AI"
)

// Version is the server version reported by /health. Set at build time.
var Version = "0.1.0"

// ============================================================================
// SERVER STATS
// ============================================================================

// Stats counts chat traffic since start.
type Stats struct {
	ChatRequests  atomic.Int64
	ChatFailures  atomic.Int64
	RejectedChats atomic.Int64
	StartTime     time.Time
}

// NewStats creates Stats starting now.
func NewStats() *Stats {
	return &Stats{StartTime: time.Now()}
}

// Uptime returns the time since the server was created.
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// ============================================================================
// SERVER
// ============================================================================

// Server is the relay HTTP server.
type Server struct {
	host   string
	port   int
	router *http.ServeMux
	server *http.Server

	relay   *relay.Service
	logger  *slog.Logger
	cors    *CORSConfig
	limiter *RateLimiter
	stats   *Stats

	mu sync.RWMutex
}

// NewServer creates a Server for svc. A zero port selects DefaultPort.
func NewServer(port int, svc *relay.Service) *Server {
	if port == 0 {
		port = DefaultPort
	}

	s := &Server{
		host:   "127.0.0.1",
		port:   port,
		router: http.NewServeMux(),
		relay:  svc,
		logger: slog.Default(),
		cors:   DefaultCORSConfig(),
		stats:  NewStats(),
	}

	s.setupRoutes()
	return s
}

// WithHost sets the listen host. Use "0.0.0.0" to accept remote clients.
func (s *Server) WithHost(host string) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.host = host
	return s
}

// WithLogger sets the logger for request and lifecycle events.
func (s *Server) WithLogger(l *slog.Logger) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l != nil {
		s.logger = l
	}
	return s
}

// WithCORS replaces the CORS configuration.
func (s *Server) WithCORS(cfg *CORSConfig) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cors = cfg
	return s
}

// WithRateLimiter sets the limiter applied to /api routes. Nil disables
// rate limiting.
func (s *Server) WithRateLimiter(rl *RateLimiter) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.limiter = rl
	return s
}

// Port returns the configured port.
func (s *Server) Port() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.port
}

// Stats returns the live counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// setupRoutes registers handlers.
func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET "+api.PathDifficulties, s.handleDifficulties)
	s.router.HandleFunc("POST "+api.PathChat, s.handleChat)
	s.router.HandleFunc("POST "+api.PathReset, s.handleReset)
	s.router.HandleFunc("GET "+api.PathHealth, s.handleHealth)
}

// Handler returns the router wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	s.mu.RLock()
	logger, cors, limiter := s.logger, s.cors, s.limiter
	s.mu.RUnlock()

	middlewares := []func(http.Handler) http.Handler{
		RecoveryMiddleware(logger),
		RequestIDMiddleware(),
		SecurityHeadersMiddleware(),
	}
	if cors != nil {
		middlewares = append(middlewares, CORSMiddleware(cors))
	}
	middlewares = append(middlewares, LoggingMiddleware(logger))
	if limiter != nil {
		middlewares = append(middlewares, RateLimitMiddleware(limiter, logger))
	}
	return Chain(middlewares...)(s.router)
}

// ============================================================================
// HANDLERS
// ============================================================================

func (s *Server) handleDifficulties(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.DifficultiesResponse{
		Difficulties: s.relay.Catalog().Listings(),
	})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	s.stats.ChatRequests.Add(1)

	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
	var req api.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.stats.RejectedChats.Add(1)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := validateHistory(req.History); err != nil {
		s.stats.RejectedChats.Add(1)
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	turns := make([]relay.Turn, len(req.History))
	for i, h := range req.History {
		turns[i] = relay.Turn{Author: h.Author(), Text: h.Text, IsError: h.IsError}
	}

	reply, err := s.relay.Reply(r.Context(), relay.Request{
		PersonaID: req.Difficulty,
		History:   turns,
	})
	if err != nil {
		var pe *relay.PersonaError
		switch {
		case errors.As(err, &pe):
			s.stats.RejectedChats.Add(1)
			s.logger.Warn("CHAT_UNKNOWN_PERSONA", "persona", pe.ID, "request_id", RequestIDFromContext(r.Context()))
			s.writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: pe.Error(), Available: pe.Valid})
		case errors.Is(err, relay.ErrEmptyHistory):
			s.stats.RejectedChats.Add(1)
			s.writeError(w, http.StatusBadRequest, err.Error())
		default:
			s.stats.ChatFailures.Add(1)
			s.writeError(w, http.StatusInternalServerError, genericChatError)
		}
		return
	}

	s.writeJSON(w, http.StatusOK, api.ChatResponse{Message: reply})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.ResetResponse{Message: api.ResetAck})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:   "ok",
		Version:  Version,
		Personas: len(s.relay.Catalog().IDs()),
	})
}

// validateHistory enforces request size limits.
func validateHistory(history []api.HistoryEntry) error {
	if len(history) > MaxHistoryTurns {
		return fmt.Errorf("history too long: %d entries (max %d)", len(history), MaxHistoryTurns)
	}
	for i, h := range history {
		if n := utf8.RuneCountInString(h.Text); n > MaxTurnLength {
			return fmt.Errorf("history entry %d too long: %d characters (max %d)", i, n, MaxTurnLength)
		}
	}
	return nil
}

// ============================================================================
// LIFECYCLE
// ============================================================================

// Start listens on host:port and serves until Shutdown.
func (s *Server) Start() error {
	s.mu.RLock()
	addr := net.JoinHostPort(s.host, fmt.Sprintf("%d", s.port))
	s.mu.RUnlock()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ln)
}

// Serve serves on an existing listener.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.mu.Lock()
	s.server = srv
	logger := s.logger
	s.mu.Unlock()

	logger.Info("SERVER_START", "addr", ln.Addr().String(), "version", Version)
	return srv.Serve(ln)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.RLock()
	srv, logger, limiter := s.server, s.logger, s.limiter
	s.mu.RUnlock()

	if limiter != nil {
		limiter.Close()
	}
	if srv == nil {
		return nil
	}

	logger.Info("SERVER_SHUTDOWN",
		"uptime", s.stats.Uptime().Round(time.Second),
		"chat_requests", s.stats.ChatRequests.Load(),
		"chat_failures", s.stats.ChatFailures.Load())
	return srv.Shutdown(ctx)
}

// ============================================================================
// RESPONSE HELPERS
// ============================================================================

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("RESPONSE_ENCODE_FAILED", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}
