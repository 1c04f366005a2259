// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package server exposes the conversation relay over HTTP.
//
// # Endpoints
//
//   - GET  /api/difficulties - persona listing for clients
//   - POST /api/chat         - generate the partner's next reply
//   - POST /api/reset        - acknowledge a client-side reset
//   - GET  /health           - liveness and counters
//
// The server holds no conversation state; every chat request carries the
// full history it needs.
//
// # Middleware
//
// Requests pass through panic recovery, request ids, security headers,
// CORS, structured request logging, and a per-IP token bucket rate limit
// on /api routes.
//
// # Usage
//
//	svc := relay.New(persona.Default(), generator)
//	srv := server.NewServer(5001, svc)
//	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
//		log.Fatal(err)
//	}
package server
