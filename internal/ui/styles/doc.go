// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package styles provides the colour palette and Lip Gloss styles for the
rolechat terminal client.

All colours are Lip Gloss AdaptiveColor values, so they follow the
terminal's light or dark background. NewTheme detects the colour profile
with termenv; the chat view uses it to pick a matching glamour style for
read-only transcripts.

# Status Indicators

Status lines carry an ASCII marker ([OK], [X], [!], [i]) next to the colour
so they stay readable without colour.
*/
package styles
