// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package persona holds the catalog of conversation partner profiles
// ("difficulties"). The server side uses it to build system prompts and to
// validate persona ids; the client side receives its public listing and
// falls back to a built-in copy when the server cannot be reached.
package persona
