// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/session"
	"github.com/jeranaias/rolechat/internal/ui/styles"
)

// resetNotifyTimeout bounds the best-effort backend reset call.
const resetNotifyTimeout = 5 * time.Second

// panel is an overlay that replaces the conversation in the viewport.
type panel int

const (
	panelNone panel = iota
	panelHelp
	panelArchive
	panelPersonas
)

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the chat client. Conversation state
// lives in the session controller; Model only keeps what is purely visual.
type Model struct {
	ctrl   *session.Controller
	ctx    context.Context
	theme  *styles.Theme
	keyMap KeyMap

	// Dimensions
	width  int
	height int

	// UI Components
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	// Send tracking. sendSeq is bumped on every send, reset and resume so a
	// late replyMsg cannot clear a newer send.
	sending bool
	sendSeq int

	panel   panel
	entries []archive.Entry // last archive listing, newest first
	notice  string

	renderer      *glamour.TermRenderer
	rendererWidth int

	// archiveChanges signals edits to the archive made outside this model.
	archiveChanges <-chan struct{}

	quitting bool
}

// Option configures a Model.
type Option func(*Model)

// WithArchiveChanges reloads the archive listing whenever ch fires, so the
// archive panel follows edits made by other processes.
func WithArchiveChanges(ch <-chan struct{}) Option {
	return func(m *Model) { m.archiveChanges = ch }
}

// New creates the chat model. ctx bounds every backend and archive call.
func New(ctx context.Context, ctrl *session.Controller, theme *styles.Theme, opts ...Option) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Type a message or /help..."
	ti.CharLimit = 4096
	ti.Focus()

	vp := viewport.New(80, 20)

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = theme.Typing

	m := Model{
		ctrl:     ctrl,
		ctx:      ctx,
		theme:    theme,
		keyMap:   DefaultKeyMap(),
		width:    80,
		height:   24,
		viewport: vp,
		input:    ti,
		spinner:  sp,
	}
	for _, opt := range opts {
		opt(&m)
	}
	m.refresh()
	return m
}

// Init loads the persona catalog and the archive listing, and starts
// listening for outside archive changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		loadPersonasCmd(m.ctx, m.ctrl),
		loadArchiveCmd(m.ctx, m.ctrl, false),
		waitForArchiveChange(m.archiveChanges),
	)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case spinner.TickMsg:
		if !m.sending {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh()
		return m, cmd

	case personasLoadedMsg:
		m.refresh()
		return m, nil

	case replyMsg:
		return m.handleReply(msg)

	case archiveLoadedMsg:
		if msg.err == nil {
			m.entries = msg.entries
			if msg.show {
				m.panel = panelArchive
			}
		}
		m.refresh()
		return m, nil

	case archiveChangedMsg:
		return m, tea.Batch(
			waitForArchiveChange(m.archiveChanges),
			loadArchiveCmd(m.ctx, m.ctrl, false),
		)

	case opDoneMsg:
		m.notice = msg.notice
		m.refresh()
		if msg.refresh {
			return m, loadArchiveCmd(m.ctx, m.ctrl, m.panel == panelArchive)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// =============================================================================
// RESIZE AND KEYS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.theme.SetSize(m.width, m.height)

	// header, warning, banner, input (border + line), status bar
	const reservedHeight = 7
	vh := m.height - reservedHeight
	if vh < 1 {
		vh = 1
	}
	m.viewport.Width = max(m.width, 1)
	m.viewport.Height = vh

	const promptLen = 2
	m.input.Width = max(m.width-4-promptLen, 10)

	m.refresh()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Back):
		switch {
		case m.panel != panelNone:
			m.panel = panelNone
		case m.ctrl.Snapshot().Viewing != nil:
			_ = m.ctrl.CloseView()
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keyMap.Help):
		if m.panel == panelHelp {
			m.panel = panelNone
		} else {
			m.panel = panelHelp
		}
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(1)
		return m, nil
	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(1)
		return m, nil
	case key.Matches(msg, m.keyMap.PageUp):
		m.viewport.HalfViewUp()
		return m, nil
	case key.Matches(msg, m.keyMap.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	case key.Matches(msg, m.keyMap.Home):
		m.viewport.GotoTop()
		return m, nil
	case key.Matches(msg, m.keyMap.End):
		m.viewport.GotoBottom()
		return m, nil

	case key.Matches(msg, m.keyMap.Submit):
		return m.handleSubmit()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	m.ctrl.SetInput(m.input.Value())
	return m, cmd
}

// =============================================================================
// SEND
// =============================================================================

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := m.input.Value()
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return m, nil
	}
	if strings.HasPrefix(trimmed, "/") {
		m.input.Reset()
		m.ctrl.SetInput("")
		return m.handleCommand(trimmed)
	}

	if m.sending {
		m.notice = "Wait for the reply before sending again."
		return m, nil
	}
	if m.ctrl.Snapshot().Viewing != nil {
		m.notice = "Use /resume to continue this chat or /close to go back."
		return m, nil
	}

	m.input.Reset()
	m.panel = panelNone
	m.notice = ""
	m.sending = true
	m.sendSeq++
	m.ctrl.DismissBanner()
	return m, tea.Batch(sendCmd(m.ctx, m.ctrl, text, m.sendSeq), m.spinner.Tick)
}

func (m Model) handleReply(msg replyMsg) (tea.Model, tea.Cmd) {
	if msg.seq != m.sendSeq {
		return m, nil
	}
	m.sending = false
	switch {
	case errors.Is(msg.err, session.ErrSendInFlight):
		m.notice = "Wait for the reply before sending again."
	case errors.Is(msg.err, session.ErrMessageTooLong):
		m.notice = "That message is too long to send."
	}
	m.refresh()
	m.viewport.GotoBottom()
	return m, nil
}

// abandonSend forgets an outstanding send after reset or resume.
func (m *Model) abandonSend() {
	m.sending = false
	m.sendSeq++
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

func sendCmd(ctx context.Context, ctrl *session.Controller, text string, seq int) tea.Cmd {
	return func() tea.Msg {
		return replyMsg{err: ctrl.Send(ctx, text), seq: seq}
	}
}

func loadPersonasCmd(ctx context.Context, ctrl *session.Controller) tea.Cmd {
	return func() tea.Msg {
		return personasLoadedMsg{err: ctrl.LoadPersonas(ctx)}
	}
}

// waitForArchiveChange blocks until ch fires. A nil or closed channel ends
// the listening.
func waitForArchiveChange(ch <-chan struct{}) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return archiveChangedMsg{}
	}
}

func loadArchiveCmd(ctx context.Context, ctrl *session.Controller, show bool) tea.Cmd {
	return func() tea.Msg {
		entries, err := ctrl.Archive(ctx)
		return archiveLoadedMsg{entries: entries, err: err, show: show}
	}
}

// =============================================================================
// RENDER HELPERS
// =============================================================================

// refresh re-renders the viewport from a fresh state snapshot.
func (m *Model) refresh() {
	atBottom := m.viewport.AtBottom()
	m.viewport.SetContent(m.renderContent(m.ctrl.Snapshot()))
	if atBottom || m.sending {
		m.viewport.GotoBottom()
	}
}

// markdown renders md with glamour, falling back to the raw text.
func (m *Model) markdown(md string) string {
	width := max(m.width-4, 20)
	if m.renderer == nil || m.rendererWidth != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.theme.MarkdownStyle()),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return md
		}
		m.renderer, m.rendererWidth = r, width
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
