// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styling for rolechat CLI output.
//
// Colors are disabled for non-TTY output and when NO_COLOR is set;
// FORCE_COLOR turns them back on.

package cli

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/jeranaias/rolechat/internal/ui/styles"
)

// applyColorProfile syncs lipgloss and fatih/color with ColorsEnabled.
func applyColorProfile() {
	lipgloss.SetColorProfile(GetColorProfile())
	color.NoColor = !ColorsEnabled()
}

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Cyan)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(styles.TextSecondary).
			Width(14)

	// IndexStyle numbers archive rows
	IndexStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(styles.Purple).
			Width(4)

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().
			Foreground(styles.TextMuted)

)

// RenderStatus renders an [OK] or [FAIL] marker.
func RenderStatus(ok bool) string {
	if ok {
		return color.GreenString("[OK]")
	}
	return color.RedString("[FAIL]")
}
