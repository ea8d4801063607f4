// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"
)

func newHealthCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Long: `Query the backend health endpoint. The check is unauthenticated, so it
works before "counsel login".

Exit status is 0 when the backend reports healthy, 5 when it cannot be
reached, and 1 when it answers but reports a problem.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := e.client()
			start := time.Now()
			health, err := client.HealthCheck(cmd.Context())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			if e.opts.jsonOut {
				if err := writeJSON(cmd.OutOrStdout(), "health", health); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, TitleStyle.Render("Backend health"))
				fmt.Fprintln(out, RenderField("URL", client.BaseURL()))
				fmt.Fprintln(out, RenderField("Status", RenderStatus(health.Healthy())+" "+health.Status))
				if health.Version != "" {
					fmt.Fprintln(out, RenderField("Version", health.Version))
				}
				fmt.Fprintln(out, RenderField("Latency", elapsed.Round(time.Millisecond).String()))

				names := make([]string, 0, len(health.Services))
				for name := range health.Services {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintln(out, RenderField("  "+name, health.Services[name]))
				}
			}
			if !health.Healthy() {
				return fmt.Errorf("backend reports status %q", health.Status)
			}
			return nil
		},
	}
}
