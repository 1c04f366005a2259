// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/archive"
	"github.com/jeranaias/rolechat/internal/client"
	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/logging"
	"github.com/jeranaias/rolechat/internal/session"
	"github.com/jeranaias/rolechat/internal/ui/chat"
	"github.com/jeranaias/rolechat/internal/ui/styles"
)

func chatCmd(opts *globalOptions) *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat client (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, apiURL)
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Relay base URL (default from config)")
	return cmd
}

// runChat opens the full-screen client.
func runChat(cmd *cobra.Command, opts *globalOptions, apiURL string) error {
	if err := RequiresTTY("open the chat client"); err != nil {
		return err
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if apiURL != "" {
		cfg.Client.APIURL = apiURL
	}

	// The TUI owns the terminal, so logs go to a file.
	logCfg := cfg.Log
	logCfg.Output = "file"
	logCfg.FilePath = cfg.Client.LogFile
	logger, closer, err := logging.Setup(logCfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	store := openStoreOrMemory(cfg, logger)
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	rc := client.New(cfg.Client.APIURL, client.WithTimeout(cfg.Client.Timeout()))
	ctrl := session.New(rc, store,
		session.WithExportDir(cfg.Client.ExportDir),
		session.WithLogger(logger),
	)

	var chatOpts []chat.Option
	watcher, err := archive.Watch(store, archive.DefaultWatchDebounce)
	if err != nil {
		logger.Warn("ARCHIVE_WATCH_FAILED", "path", cfg.Archive.Path, "error", err)
	} else if watcher != nil {
		defer watcher.Close()
		chatOpts = append(chatOpts, chat.WithArchiveChanges(watcher.Changes()))
	}

	p := tea.NewProgram(chat.New(ctx, ctrl, styles.NewTheme(), chatOpts...),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat client: %w", err)
	}
	return nil
}

// openStoreOrMemory opens the configured archive. When that fails the
// client still runs, keeping saves for this process only.
func openStoreOrMemory(cfg *config.Config, logger *slog.Logger) archive.Store {
	store, err := archive.Open(cfg.Archive.Backend, cfg.Archive.Path)
	if err != nil {
		logger.Error("ARCHIVE_OPEN_FAILED",
			"backend", cfg.Archive.Backend,
			"path", cfg.Archive.Path,
			"error", err)
		return archive.NewMemoryStore()
	}
	return store
}
