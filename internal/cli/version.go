// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func newVersionCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := map[string]string{
				"version":    Version,
				"git_commit": GitCommit,
				"build_date": BuildDate,
				"go_version": runtime.Version(),
				"platform":   runtime.GOOS + "/" + runtime.GOARCH,
			}
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "version", info)
			}
			fmt.Fprintln(cmd.OutOrStdout(), TitleStyle.Render("counsel "+Version))
			for _, k := range []string{"git_commit", "build_date", "go_version", "platform"} {
				fmt.Fprintln(cmd.OutOrStdout(), RenderField(k, info[k]))
			}
			return nil
		},
	}
}
