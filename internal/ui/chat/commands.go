// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rolechat/internal/export"
)

// =============================================================================
// COMMAND HANDLER REGISTRY
// =============================================================================

// CommandHandler handles one slash command.
type CommandHandler func(m *Model, args []string) (tea.Model, tea.Cmd)

// commandHandlers maps command names to their handler functions.
var commandHandlers = map[string]CommandHandler{
	// Help & Meta
	"help": handleHelpCommand,
	"h":    handleHelpCommand,
	"?":    handleHelpCommand,
	"quit": handleQuitCommand,
	"q":    handleQuitCommand,
	"exit": handleQuitCommand,

	// Conversation
	"reset":    handleResetCommand,
	"new":      handleResetCommand,
	"persona":  handlePersonaCommand,
	"p":        handlePersonaCommand,
	"personas": handlePersonasCommand,

	// Archive
	"save":    handleSaveCommand,
	"s":       handleSaveCommand,
	"archive": handleArchiveCommand,
	"a":       handleArchiveCommand,
	"list":    handleArchiveCommand,
	"view":    handleViewCommand,
	"v":       handleViewCommand,
	"resume":  handleResumeCommand,
	"r":       handleResumeCommand,
	"close":   handleCloseCommand,
	"delete":  handleDeleteCommand,
	"del":     handleDeleteCommand,

	// Files
	"export":     handleExportCommand,
	"e":          handleExportCommand,
	"export-all": handleExportAllCommand,
	"import":     handleImportCommand,
	"i":          handleImportCommand,
}

// commandHelp is the help panel content, in display order.
var commandHelp = [][2]string{
	{"/save", "save the current chat to the archive"},
	{"/archive", "list saved chats"},
	{"/view <n>", "open saved chat n read-only"},
	{"/resume", "continue the chat being viewed"},
	{"/close", "leave the chat being viewed"},
	{"/delete <n>", "delete saved chat n"},
	{"/export [md]", "export the current chat as JSON or Markdown"},
	{"/export-all", "export every saved chat to one file"},
	{"/import <file>", "open an exported chat read-only"},
	{"/persona <id>", "switch conversation partner"},
	{"/personas", "list conversation partners"},
	{"/reset", "start over with a fresh greeting"},
	{"/help", "show this help"},
	{"/quit", "exit"},
}

// handleCommand parses and dispatches a slash command.
func (m Model) handleCommand(content string) (tea.Model, tea.Cmd) {
	parts := strings.Fields(content)
	if len(parts) == 0 {
		return m, nil
	}

	name := strings.ToLower(strings.TrimPrefix(parts[0], "/"))
	handler, ok := commandHandlers[name]
	if !ok {
		m.notice = fmt.Sprintf("Unknown command: /%s. Type /help for the list.", name)
		return m, nil
	}
	m.notice = ""
	return handler(&m, parts[1:])
}

// =============================================================================
// HELP & META
// =============================================================================

func handleHelpCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.panel = panelHelp
	m.refresh()
	return *m, nil
}

func handleQuitCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.quitting = true
	return *m, tea.Quit
}

// =============================================================================
// CONVERSATION
// =============================================================================

// handleResetCommand clears the conversation before returning so the next
// send is accepted at once; only the backend notification is async.
func handleResetCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.ctrl.Clear()
	m.abandonSend()
	m.panel = panelNone
	m.notice = "Conversation reset."
	m.refresh()
	ctx, ctrl := m.ctx, m.ctrl
	return *m, func() tea.Msg {
		rctx, cancel := context.WithTimeout(ctx, resetNotifyTimeout)
		defer cancel()
		ctrl.NotifyReset(rctx)
		return nil
	}
}

func handlePersonaCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) != 1 {
		m.panel = panelPersonas
		m.notice = "Usage: /persona <id>"
		m.refresh()
		return *m, nil
	}
	if err := m.ctrl.SetPersona(args[0]); err != nil {
		m.notice = fmt.Sprintf("Unknown persona %q. Type /personas for the list.", args[0])
		return *m, nil
	}
	m.notice = "Persona: " + m.ctrl.Snapshot().Session.PersonaID
	m.refresh()
	return *m, nil
}

func handlePersonasCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	m.panel = panelPersonas
	m.refresh()
	return *m, nil
}

// =============================================================================
// ARCHIVE
// =============================================================================

func handleSaveCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	ctx, ctrl := m.ctx, m.ctrl
	return *m, func() tea.Msg {
		_, err := ctrl.Save(ctx)
		return opDoneMsg{err: err, refresh: err == nil}
	}
}

func handleArchiveCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	return *m, loadArchiveCmd(m.ctx, m.ctrl, true)
}

func handleViewCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	idx, problem := parseIndex(args, len(m.entries))
	if problem != "" {
		m.notice = problem
		return *m, nil
	}
	id := m.entries[idx].ID
	m.panel = panelNone
	ctx, ctrl := m.ctx, m.ctrl
	return *m, func() tea.Msg {
		return opDoneMsg{err: ctrl.View(ctx, id)}
	}
}

func handleResumeCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if err := m.ctrl.Resume(); err != nil {
		m.notice = "Nothing to resume. Open a chat with /view or /import first."
		return *m, nil
	}
	m.abandonSend()
	m.panel = panelNone
	m.notice = "Chat resumed."
	m.refresh()
	m.viewport.GotoBottom()
	return *m, nil
}

func handleCloseCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if err := m.ctrl.CloseView(); err != nil {
		m.notice = "No chat is open for viewing."
		return *m, nil
	}
	m.refresh()
	return *m, nil
}

func handleDeleteCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	idx, problem := parseIndex(args, len(m.entries))
	if problem != "" {
		m.notice = problem
		return *m, nil
	}
	id := m.entries[idx].ID
	ctx, ctrl := m.ctx, m.ctrl
	return *m, func() tea.Msg {
		err := ctrl.Delete(ctx, id)
		return opDoneMsg{err: err, refresh: true}
	}
}

// =============================================================================
// FILES
// =============================================================================

func handleExportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	var exporter export.Exporter = export.NewJSONExporter()
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "md", "markdown":
			exporter = export.NewMarkdownExporter()
		case "json":
		default:
			m.notice = "Usage: /export [json|md]"
			return *m, nil
		}
	}
	ctrl := m.ctrl
	return *m, func() tea.Msg {
		path, err := ctrl.Export(exporter)
		if err != nil {
			return opDoneMsg{notice: "Export failed: " + err.Error(), err: err}
		}
		return opDoneMsg{notice: "Exported to " + path}
	}
}

func handleExportAllCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	ctx, ctrl := m.ctx, m.ctrl
	return *m, func() tea.Msg {
		path, err := ctrl.ExportAll(ctx)
		if err != nil {
			return opDoneMsg{err: err}
		}
		return opDoneMsg{notice: "Export complete: " + path}
	}
}

func handleImportCommand(m *Model, args []string) (tea.Model, tea.Cmd) {
	if len(args) == 0 {
		m.notice = "Usage: /import <file>"
		return *m, nil
	}
	path := strings.Join(args, " ")
	m.panel = panelNone
	ctrl := m.ctrl
	return *m, func() tea.Msg {
		return opDoneMsg{err: ctrl.ImportFile(path)}
	}
}

// =============================================================================
// HELPERS
// =============================================================================

// parseIndex reads a 1-based archive position from args. On failure it
// returns the notice to show instead.
func parseIndex(args []string, n int) (int, string) {
	if len(args) != 1 {
		return 0, "Give the chat number shown by /archive."
	}
	if n == 0 {
		return 0, "The archive is empty. Use /archive to refresh."
	}
	i, err := strconv.Atoi(args[0])
	if err != nil || i < 1 || i > n {
		return 0, fmt.Sprintf("Pick a number between 1 and %d.", n)
	}
	return i - 1, ""
}
