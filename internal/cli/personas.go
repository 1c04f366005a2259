// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/rolechat/internal/client"
	"github.com/jeranaias/rolechat/internal/persona"
)

func personasCmd(opts *globalOptions) *cobra.Command {
	var (
		remote bool
		apiURL string
	)
	cmd := &cobra.Command{
		Use:   "personas",
		Short: "List conversation partners",
		Long: `List the conversation partners.

By default the built-in catalog is shown. With --remote the list comes from
the relay server, which is what the chat client uses.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			return OutputJSON(out, opts.jsonMode, "personas", func() (any, error) {
				listings := persona.Default().Listings()
				if remote {
					cfg, err := opts.loadConfig()
					if err != nil {
						return nil, err
					}
					if apiURL != "" {
						cfg.Client.APIURL = apiURL
					}
					rc := client.New(cfg.Client.APIURL, client.WithTimeout(cfg.Client.Timeout()))
					listings, err = rc.Personas(cmd.Context())
					if err != nil {
						return nil, NewCommandError("personas", "list", "relay unreachable at "+cfg.Client.APIURL, err)
					}
				}
				if !opts.jsonMode {
					printListings(out, listings)
				}
				return listings, nil
			})
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the relay server instead of the built-in catalog")
	cmd.Flags().StringVar(&apiURL, "api-url", "", "Relay base URL (default from config)")
	return cmd
}

func printListings(out io.Writer, listings []persona.Listing) {
	fmt.Fprintln(out, TitleStyle.Render("Conversation partners"))
	for _, l := range listings {
		marker := " "
		if l.ID == persona.DefaultID {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s %s\n", marker, LabelStyle.Render(l.ID), l.Description)
		if len(l.Phrases) > 0 {
			fmt.Fprintln(out, DimStyle.Render(`    "`+strings.Join(l.Phrases, `", "`)+`"`))
		}
	}
	fmt.Fprintln(out, DimStyle.Render("* default"))
}
