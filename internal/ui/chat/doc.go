// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat provides the terminal chat client for rolechat.

The Model is a Bubble Tea model layered over a session.Controller. The
controller owns the conversation, the archive and the viewing mode; the
Model keeps only what is visual: the viewport, the input line, the spinner
and which panel is open.

# Key Components

## Model (model.go)

Routes key presses, resizes and async results. Backend and archive calls run
inside tea.Cmds so the UI never blocks on the network.

## View Rendering (view.go)

Renders the header with the active persona, the conversation bubbles, the
failure banner, the input line and a status bar. Viewed and imported chats
are rendered as Markdown through glamour.

## Commands (commands.go)

Slash command handler registry:
  - /save, /archive, /view, /resume, /close, /delete
  - /export, /export-all, /import
  - /persona, /personas, /reset
  - /help, /quit

# Usage

	ctrl := session.New(client.New(apiURL), store)
	p := tea.NewProgram(chat.New(ctx, ctrl, styles.NewTheme()), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatal(err)
	}
*/
package chat
