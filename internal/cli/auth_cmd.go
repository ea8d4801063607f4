// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/auth"
)

func newLoginCmd(e *env) *cobra.Command {
	var (
		token  string
		verify bool
	)
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store an access token",
		Long: `Store the bearer token used for backend requests.

The token is read without echo from the terminal, or from stdin when
piped, and saved with owner-only permissions to auth.token_file.

Examples:
  counsel login
  echo "$TOKEN" | counsel login --verify`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			if token == "" {
				var err error
				token, err = readSecret(cmd.InOrStdin(), cmd.ErrOrStderr(), "Access token: ")
				if err != nil {
					return err
				}
			}
			path := e.cfg.Auth.TokenFile
			if err := auth.SaveToken(path, token); err != nil {
				if errors.Is(err, auth.ErrEmptyToken) {
					return NewValidationError("token", "", "token is empty")
				}
				return err
			}

			if verify {
				client := api.NewClient(e.cfg.API.URL, auth.StaticToken(token)).
					WithTimeout(e.cfg.API.Timeout()).
					WithLogger(e.logger)
				if _, err := client.ListSessions(cmd.Context()); err != nil {
					return fmt.Errorf("token saved to %s but verification failed: %w", path, err)
				}
			}

			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "login", map[string]any{"token_file": path, "verified": verify})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token saved to %s\n", RenderStatus(true), path)
			return nil
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "token value (visible in shell history; prefer the prompt)")
	cmd.Flags().BoolVar(&verify, "verify", false, "check the token against the backend")
	return cmd
}

func newLogoutCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored access token",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := e.cfg.Auth.TokenFile
			had := auth.HasToken(path)
			if err := auth.RemoveToken(path); err != nil {
				return err
			}
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "logout", map[string]any{"token_file": path, "removed": had})
			}
			if !had {
				fmt.Fprintln(cmd.OutOrStdout(), DimStyle.Render("No stored token"))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Token removed\n", RenderStatus(true))
			return nil
		},
	}
}
