// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive archive commands.
//
//  1. --yes proceeds without prompting
//  2. --json requires --yes
//  3. a non-terminal stdin requires --yes
//  4. otherwise the user is asked

package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ConfirmationOptions controls RequireConfirmation.
type ConfirmationOptions struct {
	// ConfirmFlag is set when --yes was passed
	ConfirmFlag bool
	// JSONMode is set when --json was passed
	JSONMode bool
	// Interactive is set when in is a terminal
	Interactive bool
}

// RequireConfirmation asks whether to go ahead with action. It reports
// false without error when the user declines.
func RequireConfirmation(in io.Reader, out io.Writer, action string, opts ConfirmationOptions) (bool, error) {
	if opts.ConfirmFlag {
		return true, nil
	}
	if opts.JSONMode {
		return false, &UsageError{Reason: "confirmation required: use --yes in JSON mode"}
	}
	if !opts.Interactive {
		return false, &UsageError{Reason: "confirmation required but stdin is not a terminal; use --yes"}
	}

	fmt.Fprintf(out, "Are you sure you want to %s? [y/N]: ", action)
	input, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	response := strings.ToLower(strings.TrimSpace(input))
	return response == "y" || response == "yes", nil
}

// ShowCancellationMessage prints the standard cancellation line.
func ShowCancellationMessage(out io.Writer) {
	fmt.Fprintln(out, DimStyle.Render("Cancelled."))
}
