// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/config"
	"github.com/jeranaias/rolechat/internal/server"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// globalOptions holds the persistent flags.
type globalOptions struct {
	configPath string
	jsonMode   bool
	logLevel   string
}

// loadConfig loads the configuration and applies flag overrides.
func (o *globalOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	return cfg, nil
}

// NewRootCmd builds the rolechat command tree. Running it without a
// subcommand opens the chat client.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "rolechat",
		Short: "Practice conversations with a simulated partner",
		Long: `rolechat: role-play practice conversations in the terminal.

Usage modes:
  rolechat              Open the chat client
  rolechat serve        Run the relay server the client talks to
  rolechat <command>    Manage saved chats and inspect personas

Configuration is read from ~/.rolechat/config.toml, a .env file and
ROLECHAT_* environment variables.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			applyColorProfile()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, opts, "")
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "Config file (default ~/.rolechat/config.toml)")
	rootCmd.PersistentFlags().BoolVar(&opts.jsonMode, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the log level (debug, info, warn, error)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "run", Title: "Run:"},
		&cobra.Group{ID: "data", Title: "Saved chats:"},
	)

	serve := serveCmd(opts)
	serve.GroupID = "run"
	chat := chatCmd(opts)
	chat.GroupID = "run"
	status := statusCmd(opts)
	status.GroupID = "run"
	rootCmd.AddCommand(serve, chat, status)

	arch := archiveCmd(opts)
	arch.GroupID = "data"
	personas := personasCmd(opts)
	personas.GroupID = "data"
	rootCmd.AddCommand(arch, personas)

	rootCmd.AddCommand(versionCmd(opts))
	return rootCmd
}

// Execute runs the command tree and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCmd()
	err := rootCmd.Execute()
	if err == nil {
		return ExitSuccess
	}

	jsonMode, _ := rootCmd.PersistentFlags().GetBool("json")
	var out io.Writer = os.Stderr
	if jsonMode {
		out = os.Stdout
	}
	DisplayError(out, err, jsonMode)
	return GetExitCode(err)
}

// =============================================================================
// VERSION
// =============================================================================

type versionInfo struct {
	Version       string `json:"version"`
	GitCommit     string `json:"git_commit"`
	BuildDate     string `json:"build_date"`
	ServerVersion string `json:"server_version"`
	GoVersion     string `json:"go_version"`
}

func versionCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := versionInfo{
				Version:       Version,
				GitCommit:     GitCommit,
				BuildDate:     BuildDate,
				ServerVersion: server.Version,
				GoVersion:     runtime.Version(),
			}
			out := cmd.OutOrStdout()
			return OutputJSON(out, opts.jsonMode, "version", func() (any, error) {
				if !opts.jsonMode {
					fmt.Fprintf(out, "rolechat %s (commit %s, built %s, %s)\n",
						info.Version, info.GitCommit, info.BuildDate, info.GoVersion)
				}
				return info, nil
			})
		},
	}
}
