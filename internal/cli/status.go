// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/api"
	"github.com/jeranaias/rolechat/internal/client"
)

type statusReport struct {
	APIURL  string              `json:"api_url"`
	Healthy bool                `json:"healthy"`
	Health  *api.HealthResponse `json:"health,omitempty"`
}

func statusCmd(opts *globalOptions) *cobra.Command {
	var apiURL string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Check that the relay server is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if apiURL != "" {
				cfg.Client.APIURL = apiURL
			}
			out := cmd.OutOrStdout()
			rc := client.New(cfg.Client.APIURL, client.WithTimeout(cfg.Client.Timeout()))

			return OutputJSON(out, opts.jsonMode, "status", func() (any, error) {
				health, err := rc.Health(cmd.Context())
				if err != nil {
					return nil, NewCommandError("status", "check", "relay unreachable at "+cfg.Client.APIURL, err)
				}
				report := statusReport{APIURL: cfg.Client.APIURL, Healthy: health.Status == "ok", Health: &health}
				if !opts.jsonMode {
					fmt.Fprintln(out, TitleStyle.Render("Relay"))
					fmt.Fprintf(out, "%s %s\n", LabelStyle.Render("URL"), report.APIURL)
					fmt.Fprintf(out, "%s %s %s\n", LabelStyle.Render("Status"), RenderStatus(report.Healthy), health.Status)
					fmt.Fprintf(out, "%s %s\n", LabelStyle.Render("Version"), health.Version)
					fmt.Fprintf(out, "%s %d\n", LabelStyle.Render("Personas"), health.Personas)
				}
				return report, nil
			})
		},
	}
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Relay base URL (default from config)")
	return cmd
}
