// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session holds the client-side conversation state and the
// controller that drives it.
//
// # Key Types
//
//   - State: explicit snapshot of everything the UI renders
//   - Controller: the only writer of State; serializes every mutation
//   - Relay: the backend operations the controller needs
//
// # Usage
//
//	ctrl := session.New(client.New(url), store)
//	ctrl.LoadPersonas(ctx)
//	ctrl.Send(ctx, "Hello")
//	st := ctrl.Snapshot()
//
// A send holds no lock while the relay call is outstanding, so archive
// operations and snapshots proceed in parallel with it. Reset and resume
// bump a generation counter; a reply that arrives for an older generation
// is dropped.
package session
