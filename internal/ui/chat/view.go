// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/rolechat/internal/export"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/session"
	"github.com/jeranaias/rolechat/internal/ui/styles"
	"github.com/jeranaias/rolechat/internal/util"
)

// archivePreviewRunes bounds the preview pulled from an archive entry.
const archivePreviewRunes = 80

// =============================================================================
// MAIN VIEW
// =============================================================================

// View renders the chat interface.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	st := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader(st))
	b.WriteString("\n")
	if st.Warning != "" {
		b.WriteString(m.theme.Banner.Foreground(styles.Amber).Render(st.Warning))
	}
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if st.Banner != "" {
		b.WriteString(m.theme.Banner.Render(st.Banner))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.InputLine.Width(max(m.width-2, 10)).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar(st))
	return b.String()
}

func (m Model) renderHeader(st session.State) string {
	title := m.theme.HeaderTitle.Render("rolechat")
	who := st.Session.PersonaID
	for _, l := range st.Personas {
		if l.ID == who && l.Name != "" {
			who = l.Name
			break
		}
	}
	line := title + "  " + m.theme.HeaderPersona.Render("with "+who)
	if m.sending || st.AwaitingReply() {
		line += "  " + m.spinner.View()
	}
	return m.theme.Header.Width(max(m.width, 1)).Render(line)
}

func (m Model) renderStatusBar(st session.State) string {
	left := m.notice
	if left == "" {
		left = st.Status
	}

	var keys []string
	for _, k := range m.keyMap.ShortHelp() {
		h := k.Help()
		keys = append(keys, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	right := strings.Join(keys, "  ")

	gap := m.width - 2 - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		left = util.TruncateWidth(left, max(m.width-4-lipgloss.Width(right), 0))
		gap = max(m.width-2-lipgloss.Width(left)-lipgloss.Width(right), 1)
	}
	return m.theme.StatusBar.Width(max(m.width, 1)).Render(left + strings.Repeat(" ", gap) + right)
}

// =============================================================================
// VIEWPORT CONTENT
// =============================================================================

// renderContent builds the viewport body for the current panel or mode.
func (m *Model) renderContent(st session.State) string {
	switch m.panel {
	case panelHelp:
		return m.renderHelp()
	case panelArchive:
		return m.renderArchive()
	case panelPersonas:
		return m.renderPersonas(st)
	}
	if st.Viewing != nil {
		return m.renderViewing(st.Viewing)
	}
	return m.renderConversation(st)
}

func (m *Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Commands"))
	b.WriteString("\n\n")
	for _, row := range commandHelp {
		fmt.Fprintf(&b, "  %s %s\n", m.theme.ShortcutKey.Width(18).Render(row[0]), m.theme.ShortcutDesc.Render(row[1]))
	}
	b.WriteString("\n")
	b.WriteString(m.theme.HeaderTitle.Render("Keys"))
	b.WriteString("\n\n")
	for _, group := range m.keyMap.FullHelp() {
		for _, k := range group {
			h := k.Help()
			fmt.Fprintf(&b, "  %s %s\n", m.theme.ShortcutKey.Width(18).Render(h.Key), m.theme.ShortcutDesc.Render(h.Desc))
		}
	}
	return b.String()
}

func (m *Model) renderArchive() string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Saved chats"))
	b.WriteString("\n\n")
	if len(m.entries) == 0 {
		b.WriteString(m.theme.ArchiveMeta.Render("  No saved chats yet. Use /save to keep this one."))
		return b.String()
	}
	previewWidth := max(m.width-8, 20)
	for i, e := range m.entries {
		meta := e.PersonaID
		if at, ok := e.Created(); ok {
			meta = at.Local().Format("2006-01-02 15:04") + "  " + meta
		}
		b.WriteString(m.theme.ArchiveIndex.Render(fmt.Sprintf("%d.", i+1)))
		b.WriteString(m.theme.ArchiveMeta.Render(meta))
		b.WriteString("\n    ")
		b.WriteString(util.TruncateWidth(util.SingleLine(e.Preview(archivePreviewRunes)), previewWidth))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.theme.ArchiveMeta.Render("  /view <n> to open, /delete <n> to remove"))
	return b.String()
}

func (m *Model) renderPersonas(st session.State) string {
	var b strings.Builder
	b.WriteString(m.theme.HeaderTitle.Render("Conversation partners"))
	b.WriteString("\n\n")
	for _, l := range st.Personas {
		marker := "  "
		if l.ID == st.Session.PersonaID {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%s %s\n", marker, m.theme.ShortcutKey.Width(14).Render(l.ID), l.Name)
		if l.Description != "" {
			b.WriteString(m.theme.ArchiveMeta.Render("    " + l.Description))
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(m.theme.ArchiveMeta.Render("  /persona <id> to switch"))
	return b.String()
}

func (m *Model) renderViewing(v *session.View) string {
	label := "Viewing saved chat"
	if v.Source == session.SourceImport {
		label = "Viewing imported chat"
	}
	bar := m.theme.ViewingBar.Width(max(m.width-2, 10)).
		Render(label + " (read-only). /resume to continue, /close to go back.")
	return bar + "\n" + m.markdown(export.Transcript(v.PersonaID, v.Messages))
}

func (m *Model) renderConversation(st session.State) string {
	var b strings.Builder
	for _, msg := range st.Session.Messages {
		b.WriteString(m.renderMessage(msg))
		b.WriteString("\n")
	}
	if m.sending || st.AwaitingReply() {
		b.WriteString(m.theme.Typing.Render(m.spinner.View() + " Partner is typing..."))
		b.WriteString("\n")
	}
	return b.String()
}

func (m *Model) renderMessage(msg model.Message) string {
	width := m.theme.BubbleWidth()

	style := m.theme.PartnerBubble
	switch {
	case msg.IsError:
		style = m.theme.ErrorBubble
	case msg.Sender == model.SenderUser:
		style = m.theme.UserBubble
	}

	head := m.theme.Author.Render(msg.Sender.DisplayName())
	if clock := msg.Clock(); clock != "" {
		head += " " + m.theme.Timestamp.Render(clock)
	}
	bubble := style.Width(width).Render(msg.Text)

	block := lipgloss.JoinVertical(lipgloss.Left, head, bubble)
	if msg.Sender == model.SenderUser && !msg.IsError {
		return lipgloss.PlaceHorizontal(max(m.width, width), lipgloss.Right, block)
	}
	return block
}
