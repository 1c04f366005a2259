// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/rolechat/internal/archive"
)

// personasLoadedMsg reports the startup catalog fetch. The controller has
// already fallen back when err is set.
type personasLoadedMsg struct {
	err error
}

// replyMsg is sent when a send finishes, successfully or not.
type replyMsg struct {
	err error
	seq int
}

// archiveLoadedMsg carries a fresh archive listing.
type archiveLoadedMsg struct {
	entries []archive.Entry
	err     error
	show    bool
}

// archiveChangedMsg reports that the archive changed outside this client.
type archiveChangedMsg struct{}

// opDoneMsg reports a finished archive, export or import operation.
// notice overrides the controller's status line when non-empty.
type opDoneMsg struct {
	notice  string
	err     error
	refresh bool // reload the archive listing
}
