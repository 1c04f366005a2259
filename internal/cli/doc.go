// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the rolechat command line.
//
// The command tree is built with cobra. With no subcommand rolechat opens
// the chat client; serve runs the relay server; archive and personas work
// on saved chats and the persona catalog without opening the client.
//
// # Commands Overview
//
//   - chat: full-screen chat client (default)
//   - serve: relay server in front of the generation API
//   - status: relay health check
//   - archive list|show|delete|export|import: saved chats
//   - personas: conversation partners
//   - version: build information
//
// Every command accepts --json and then prints a JSONResponse envelope.
// Errors are returned to Execute, which prints them once and maps them to
// an exit code.
package cli
