// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export implements the chat file interchange formats.
//
// # Formats
//
//   - Single session: {difficulty, chatHistory, exportTimestamp}
//   - Full archive:   {exportedChats, exportTimestamp}
//   - Markdown transcript (one-way, for reading)
//
// The JSON shapes are the ones the browser client reads and writes, so
// files move freely between the two clients.
//
// # Usage
//
//	data, _ := export.NewJSONExporter().Export(export.NewSession(conv, time.Now()))
//	path, _ := export.WriteFile(dir, export.SessionFileName(time.Now()), data)
//
//	snap, err := export.DecodeSession(data)
//	if errors.Is(err, export.ErrFormat) { ... }
package export
