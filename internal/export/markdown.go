// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/rolechat/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter renders a readable transcript.
type MarkdownExporter struct {
	// IncludeTimestamps adds the clock time to each speaker line.
	IncludeTimestamps bool
}

// NewMarkdownExporter creates a Markdown exporter with timestamps on.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{IncludeTimestamps: true}
}

// Export renders s as Markdown.
func (e *MarkdownExporter) Export(s *Session) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("session is nil")
	}

	var sb strings.Builder
	persona := s.PersonaID
	if persona == "" {
		persona = "unknown"
	}
	fmt.Fprintf(&sb, "# Conversation: %s\n\n", escapeMarkdown(persona))
	if !s.ExportTimestamp.IsZero() {
		fmt.Fprintf(&sb, "*Exported %s*\n\n", s.ExportTimestamp.Local().Format(time.RFC1123))
	}

	for i, msg := range s.Messages {
		label := msg.Sender.DisplayName()
		if e.IncludeTimestamps && msg.Clock() != "" {
			fmt.Fprintf(&sb, "**%s** <sub>%s</sub>\n\n", label, msg.Clock())
		} else {
			fmt.Fprintf(&sb, "**%s**\n\n", label)
		}

		text := strings.TrimSpace(msg.Text)
		if msg.IsError {
			text = "> " + strings.ReplaceAll(text, "\n", "\n> ")
		}
		sb.WriteString(text)
		sb.WriteString("\n\n")

		if i < len(s.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// escapeMarkdown escapes characters that would break a heading.
func escapeMarkdown(s string) string {
	return strings.NewReplacer("#", "\\#", "*", "\\*", "_", "\\_", "[", "\\[", "]", "\\]").Replace(s)
}

// Transcript renders messages as Markdown for on-screen viewing.
func Transcript(personaID string, messages []model.Message) string {
	data, _ := (&MarkdownExporter{IncludeTimestamps: true}).Export(&Session{
		PersonaID: personaID,
		Messages:  messages,
	})
	return string(data)
}
