// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config loads rolechat configuration for both the relay server and
// the terminal client.
//
// # Configuration Precedence
//
// Configuration is loaded from (in order of precedence):
//   - Environment variables (GEMINI_API_KEY, PORT, ROLECHAT_*)
//   - .env in the working directory (never overrides the real environment)
//   - ~/.rolechat/config.toml, or the path given with --config
//   - Built-in defaults
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	addr := cfg.Server.Port
package config
