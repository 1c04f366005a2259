// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/export"
	"github.com/jeranaias/rolechat/internal/model"
	"github.com/jeranaias/rolechat/internal/util"
)

// timeNow is the clock for export stamps and imported entry ids.
var timeNow = time.Now

// archiveRow is the --json form of an archive listing line.
type archiveRow struct {
	Index     int    `json:"index"`
	ID        string `json:"id"`
	PersonaID string `json:"difficulty"`
	Messages  int    `json:"messages"`
	Preview   string `json:"preview"`
}

func archiveCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "archive",
		Aliases: []string{"saved"},
		Short:   "Manage saved chats",
		Long: `Manage the chats saved from the client.

Chats are addressed by their number in 'rolechat archive list' (newest
first) or by their id.`,
	}
	cmd.AddCommand(
		archiveListCmd(opts),
		archiveShowCmd(opts),
		archiveDeleteCmd(opts),
		archiveExportCmd(opts),
		archiveImportCmd(opts),
	)
	return cmd
}

// withStore opens the configured archive for the duration of fn.
func withStore(opts *globalOptions, fn func(store archive.Store) error) error {
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	store, err := archive.Open(cfg.Archive.Backend, cfg.Archive.Path)
	if err != nil {
		return NewCommandError("archive", "open", cfg.Archive.Backend+" store at "+cfg.Archive.Path, err)
	}
	defer store.Close()
	return fn(store)
}

// loadEntries returns every entry, newest first.
func loadEntries(ctx context.Context, store archive.Store) ([]archive.Entry, error) {
	entries, err := store.GetAll(ctx)
	if err != nil {
		return nil, NewCommandError("archive", "read", "could not load saved chats", err)
	}
	archive.SortNewestFirst(entries)
	return entries, nil
}

// resolveEntry finds ref as a 1-based position or as an id.
func resolveEntry(entries []archive.Entry, ref string) (archive.Entry, error) {
	if i, err := strconv.Atoi(ref); err == nil && i >= 1 && i <= len(entries) {
		return entries[i-1], nil
	}
	for _, e := range entries {
		if e.ID == ref {
			return e, nil
		}
	}
	return archive.Entry{}, &NotFoundError{Resource: "saved chat", ID: ref}
}

// =============================================================================
// LIST / SHOW
// =============================================================================

func archiveListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List saved chats, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withStore(opts, func(store archive.Store) error {
				return OutputJSON(out, opts.jsonMode, "archive list", func() (any, error) {
					entries, err := loadEntries(cmd.Context(), store)
					if err != nil {
						return nil, err
					}
					rows := make([]archiveRow, len(entries))
					for i, e := range entries {
						rows[i] = archiveRow{
							Index:     i + 1,
							ID:        e.ID,
							PersonaID: e.PersonaID,
							Messages:  len(e.Messages),
							Preview:   e.Preview(80),
						}
					}
					if !opts.jsonMode {
						printArchive(out, entries, rows)
					}
					return rows, nil
				})
			})
		},
	}
}

func printArchive(out io.Writer, entries []archive.Entry, rows []archiveRow) {
	if len(rows) == 0 {
		fmt.Fprintln(out, DimStyle.Render("No saved chats."))
		return
	}
	width := GetTerminalWidth()
	for i, r := range rows {
		when := r.ID
		if at, ok := entries[i].Created(); ok {
			when = at.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(out, "%s%s  %s  %s\n",
			IndexStyle.Render(strconv.Itoa(r.Index)+"."),
			when, r.PersonaID,
			DimStyle.Render(fmt.Sprintf("(%d messages)", r.Messages)))
		fmt.Fprintf(out, "    %s\n", util.TruncateWidth(r.Preview, width-6))
	}
}

func archiveShowCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <n|id>",
		Short: "Print a saved chat",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withStore(opts, func(store archive.Store) error {
				return OutputJSON(out, opts.jsonMode, "archive show", func() (any, error) {
					entries, err := loadEntries(cmd.Context(), store)
					if err != nil {
						return nil, err
					}
					e, err := resolveEntry(entries, args[0])
					if err != nil {
						return nil, err
					}
					if !opts.jsonMode {
						fmt.Fprint(out, renderMarkdown(export.Transcript(e.PersonaID, e.Messages)))
					}
					return e, nil
				})
			})
		},
	}
}

// renderMarkdown renders md for a terminal, or returns it unchanged when
// stdout is piped.
func renderMarkdown(md string) string {
	if !IsStdoutTTY() {
		return md
	}
	styleOpt := glamour.WithStandardStyle("notty")
	if ColorsEnabled() {
		styleOpt = glamour.WithAutoStyle()
	}
	r, err := glamour.NewTermRenderer(
		styleOpt,
		glamour.WithWordWrap(min(GetTerminalWidth()-4, 100)),
	)
	if err != nil {
		return md
	}
	rendered, err := r.Render(md)
	if err != nil {
		return md
	}
	return rendered
}

// =============================================================================
// DELETE
// =============================================================================

func archiveDeleteCmd(opts *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete <n|id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved chat",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withStore(opts, func(store archive.Store) error {
				entries, err := loadEntries(cmd.Context(), store)
				if err != nil {
					return err
				}
				e, err := resolveEntry(entries, args[0])
				if err != nil {
					return err
				}

				ok, err := RequireConfirmation(cmd.InOrStdin(), out,
					fmt.Sprintf("delete the chat %q", e.Preview(40)),
					ConfirmationOptions{ConfirmFlag: yes, JSONMode: opts.jsonMode, Interactive: interactive(cmd.InOrStdin())})
				if err != nil {
					return err
				}
				if !ok {
					ShowCancellationMessage(out)
					return nil
				}

				return OutputJSON(out, opts.jsonMode, "archive delete", func() (any, error) {
					if err := store.Delete(cmd.Context(), e.ID); err != nil {
						return nil, NewCommandError("archive", "delete", e.ID, err)
					}
					if !opts.jsonMode {
						fmt.Fprintf(out, "%s Chat deleted.\n", RenderStatus(true))
					}
					return map[string]string{"id": e.ID}, nil
				})
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Delete without asking")
	return cmd
}

// =============================================================================
// EXPORT / IMPORT
// =============================================================================

func archiveExportCmd(opts *globalOptions) *cobra.Command {
	var (
		dir    string
		format string
	)
	cmd := &cobra.Command{
		Use:   "export [n|id]",
		Short: "Export one saved chat, or all of them",
		Long: `Export saved chats to a file.

Without an argument every saved chat is written to one JSON archive file.
With a chat number or id that chat is written on its own, as JSON or
Markdown (--format md).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return withStore(opts, func(store archive.Store) error {
				return OutputJSON(out, opts.jsonMode, "archive export", func() (any, error) {
					entries, err := loadEntries(cmd.Context(), store)
					if err != nil {
						return nil, err
					}
					path, err := exportEntries(entries, args, dir, format)
					if err != nil {
						return nil, err
					}
					if !opts.jsonMode {
						fmt.Fprintf(out, "%s Export complete: %s\n", RenderStatus(true), path)
					}
					return map[string]string{"path": path}, nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write to")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Single-chat format: json or md")
	return cmd
}

// exportEntries writes the archive, or the single entry named by args.
func exportEntries(entries []archive.Entry, args []string, dir, format string) (string, error) {
	now := timeNow()
	if len(args) == 0 {
		data, err := export.EncodeArchive(export.NewArchive(entries, now))
		if err != nil {
			return "", err
		}
		return export.WriteFile(dir, export.ArchiveFileName(now), data)
	}

	e, err := resolveEntry(entries, args[0])
	if err != nil {
		return "", err
	}
	var exporter export.Exporter
	switch strings.ToLower(format) {
	case "json":
		exporter = export.NewJSONExporter()
	case "md", "markdown":
		exporter = export.NewMarkdownExporter()
	default:
		return "", &UsageError{Reason: "unsupported format " + format, Example: "rolechat archive export 1 --format md"}
	}
	s := &export.Session{
		PersonaID:       e.PersonaID,
		Messages:        model.CloneMessages(e.Messages),
		ExportTimestamp: now.UTC(),
	}
	return export.ExportToFile(s, exporter, dir)
}

func archiveImportCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Save the chats in an exported file to the archive",
		Long: `Import a file written by the client's export or by 'rolechat archive export'.

A single-chat file becomes a new saved chat. A full archive file adds every
chat it contains, replacing saved chats with the same id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			data, err := os.ReadFile(args[0])
			if err != nil {
				return NewCommandError("archive", "import", "could not read "+args[0], err)
			}
			return withStore(opts, func(store archive.Store) error {
				return OutputJSON(out, opts.jsonMode, "archive import", func() (any, error) {
					ids, err := importData(cmd.Context(), store, data)
					if err != nil {
						return nil, err
					}
					if !opts.jsonMode {
						fmt.Fprintf(out, "%s Imported %d chat(s).\n", RenderStatus(true), len(ids))
					}
					return map[string]any{"imported": ids}, nil
				})
			})
		},
	}
}

// importData stores the chats in data and returns their ids.
func importData(ctx context.Context, store archive.Store, data []byte) ([]string, error) {
	s, err := export.DecodeSession(data)
	if err == nil {
		conv := model.NewConversation(s.PersonaID)
		conv.Replace(s.PersonaID, s.Messages)
		e := archive.NewEntry(conv, timeNow())
		if err := store.Put(ctx, e); err != nil {
			return nil, NewCommandError("archive", "import", "could not save chat", err)
		}
		return []string{e.ID}, nil
	}
	if !errors.Is(err, export.ErrNoChatHistory) {
		return nil, err
	}

	a, aerr := export.DecodeArchive(data)
	if aerr != nil {
		if errors.Is(aerr, export.ErrNoExportedChats) {
			return nil, err
		}
		return nil, aerr
	}
	ids := make([]string, 0, len(a.ExportedChats))
	for _, e := range a.ExportedChats {
		if err := e.Validate(); err != nil {
			return ids, NewCommandError("archive", "import", "bad entry in file", err)
		}
		if err := store.Put(ctx, e); err != nil {
			return ids, NewCommandError("archive", "import", "could not save chat "+e.ID, err)
		}
		ids = append(ids, e.ID)
	}
	return ids, nil
}
