// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds all the styled components for the chat client.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// Layout dimensions
	Width  int
	Height int

	// Header
	Header        lipgloss.Style
	HeaderTitle   lipgloss.Style
	HeaderPersona lipgloss.Style

	// Message bubbles
	UserBubble    lipgloss.Style
	PartnerBubble lipgloss.Style
	ErrorBubble   lipgloss.Style
	Author        lipgloss.Style
	Timestamp     lipgloss.Style
	Typing        lipgloss.Style

	// Viewing mode and archive list
	ViewingBar   lipgloss.Style
	ArchiveIndex lipgloss.Style
	ArchiveMeta  lipgloss.Style

	// Footer
	Banner       lipgloss.Style
	InputLine    lipgloss.Style
	StatusBar    lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	profile := termenv.ColorProfile()
	return NewThemeFor(profile, termenv.HasDarkBackground())
}

// NewThemeFor creates a theme for an explicit colour profile.
func NewThemeFor(profile termenv.Profile, isDark bool) *Theme {
	t := &Theme{
		IsDark:       isDark,
		HasTrueColor: profile == termenv.TrueColor,
		ColorProfile: profile,
	}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.HeaderPersona = lipgloss.NewStyle().
		Foreground(Purple).
		Italic(true)

	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(UserBubbleBorder).
		Padding(0, 1).
		MarginLeft(4)
	t.PartnerBubble = lipgloss.NewStyle().
		Foreground(PartnerBubbleFg).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(PartnerBubbleBorder).
		Padding(0, 1).
		MarginRight(4)
	t.ErrorBubble = lipgloss.NewStyle().
		Foreground(ErrorBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Rose).
		Padding(0, 1).
		MarginRight(4)
	t.Author = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextSecondary)
	t.Timestamp = lipgloss.NewStyle().
		Foreground(TextMuted)
	t.Typing = lipgloss.NewStyle().
		Foreground(Purple).
		Italic(true)

	t.ViewingBar = lipgloss.NewStyle().
		Bold(true).
		Foreground(Amber).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(Amber)
	t.ArchiveIndex = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan).
		Width(4)
	t.ArchiveMeta = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.Banner = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true).
		Padding(0, 1)
	t.InputLine = lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderTop(true).
		BorderForeground(Overlay).
		Padding(0, 1)
	t.StatusBar = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ShortcutKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)
	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// BubbleWidth is the widest a message bubble may be.
func (t *Theme) BubbleWidth() int {
	w := t.Width * 3 / 4
	if w < 20 {
		w = 20
	}
	return w
}

// MarkdownStyle names the glamour style that matches the terminal.
func (t *Theme) MarkdownStyle() string {
	switch {
	case t.ColorProfile == termenv.Ascii:
		return "notty"
	case t.IsDark:
		return "dark"
	default:
		return "light"
	}
}
