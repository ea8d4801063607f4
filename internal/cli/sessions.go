// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/export"
	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/util"
)

func newSessionsCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sessions",
		Aliases: []string{"session", "s"},
		Short:   "List and manage sessions",
		Long: `Manage the sessions stored by the backend.

Examples:
  counsel sessions list
  counsel sessions show 3f2a...
  counsel sessions rename 3f2a... "Leave policy"
  counsel sessions delete 3f2a... --yes
  counsel sessions export 3f2a... --format md --output ./exports`,
	}
	cmd.AddCommand(
		newSessionsListCmd(e),
		newSessionsShowCmd(e),
		newSessionsRenameCmd(e),
		newSessionsDeleteCmd(e),
		newSessionsExportCmd(e),
	)
	return cmd
}

// =============================================================================
// LIST
// =============================================================================

func newSessionsListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List sessions, most recent first",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := e.workspace()
			if err := ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			sessions := ws.Directory().Sessions()

			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "sessions list", sessions)
			}
			printSessionTable(cmd.OutOrStdout(), sessions)
			return nil
		},
	}
}

func printSessionTable(w io.Writer, sessions []model.Session) {
	if len(sessions) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No sessions yet. Start one with: counsel chat"))
		return
	}
	fmt.Fprintf(w, "%s  %s  %s  %s\n",
		util.PadWidth("ID", 36), util.PadWidth("UPDATED", 16), util.PadWidth("MSGS", 4), "TITLE")
	for _, s := range sessions {
		updated := "-"
		if !s.UpdatedAt.IsZero() {
			updated = s.UpdatedAt.Local().Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s  %s  %s  %s\n",
			util.PadWidth(s.ID, 36),
			util.PadWidth(updated, 16),
			util.PadWidth(fmt.Sprint(s.MessageCount), 4),
			util.TruncateWidth(util.SingleLine(s.DisplayTitle()), 60))
	}
}

// =============================================================================
// SHOW
// =============================================================================

func newSessionsShowCmd(e *env) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "show SESSION_ID",
		Short: "Print a session transcript",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := e.workspace().Detail(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "sessions show", detail)
			}
			printTranscript(cmd.OutOrStdout(), detail, newRenderer(e))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum messages to fetch (default api.message_limit)")
	return cmd
}

func printTranscript(w io.Writer, detail *app.SessionDetail, md markdownRenderer) {
	s := detail.Session
	fmt.Fprintln(w, TitleStyle.Render(s.DisplayTitle()))
	fmt.Fprintln(w, RenderField("Session", s.ID))
	if !s.CreatedAt.IsZero() {
		fmt.Fprintln(w, RenderField("Created", s.CreatedAt.Local().Format("2006-01-02 15:04")))
	}
	fmt.Fprintln(w, RenderField("Messages", fmt.Sprint(len(detail.Messages))))
	fmt.Fprintln(w, RenderSeparator(40))

	for _, msg := range detail.Messages {
		fmt.Fprintln(w)
		if msg.Role == model.RoleAssistant {
			fmt.Fprintln(w, AssistantStyle.Render(msg.Role.DisplayName()))
			fmt.Fprintln(w, md.Render(msg.Content))
			if line := metadataLine(msg.Metadata); line != "" {
				fmt.Fprintln(w, DimStyle.Render(line))
			}
			continue
		}
		fmt.Fprintln(w, UserStyle.Render(msg.Role.DisplayName()))
		fmt.Fprintln(w, msg.Content)
	}
}

// metadataLine summarizes classification, confidence and sources.
func metadataLine(meta *model.MessageMetadata) string {
	if meta == nil {
		return ""
	}
	var parts []string
	if meta.Classification != "" {
		parts = append(parts, meta.Classification)
	}
	if meta.Confidence != nil {
		parts = append(parts, fmt.Sprintf("%.0f%% confidence", *meta.Confidence*100))
	}
	for _, src := range meta.Sources {
		ref := src.Title
		if src.Section != "" {
			ref += " " + src.Section
		}
		parts = append(parts, "source: "+ref)
	}
	return strings.Join(parts, " | ")
}

// =============================================================================
// RENAME / DELETE
// =============================================================================

func newSessionsRenameCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "rename SESSION_ID TITLE",
		Short: "Change a session title (1-200 characters)",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws := e.workspace()
			if err := ws.Refresh(cmd.Context()); err != nil {
				return err
			}
			if _, ok := ws.Directory().Get(args[0]); !ok {
				return fmt.Errorf("session %s: %w", args[0], api.ErrNotFound)
			}
			if err := ws.Rename(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			s, _ := ws.Directory().Get(args[0])
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "sessions rename", map[string]string{"id": args[0], "title": s.Title})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Renamed to %q\n", RenderStatus(true), s.Title)
			return nil
		},
	}
}

func newSessionsDeleteCmd(e *env) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "delete SESSION_ID",
		Aliases: []string{"rm"},
		Short:   "Delete a session and its messages",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if !yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.ErrOrStderr(),
					fmt.Sprintf("Delete session %s? This cannot be undone.", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.ErrOrStderr(), DimStyle.Render("Cancelled"))
					return nil
				}
			}
			if err := e.workspace().Delete(cmd.Context(), id); err != nil {
				return err
			}
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "sessions delete", map[string]string{"id": id})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Deleted %s\n", RenderStatus(true), id)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

// =============================================================================
// EXPORT
// =============================================================================

func newSessionsExportCmd(e *env) *cobra.Command {
	var (
		format    string
		outputDir string
		limit     int
		noMeta    bool
		stdout    bool
	)
	cmd := &cobra.Command{
		Use:   "export SESSION_ID",
		Short: "Export a session to json, yaml or markdown",
		Long: `Export a session and its messages.

The file is written to --output (default: current directory) and named
after the session title and the export time. --stdout prints instead.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := export.DefaultOptions()
			opts.OutputDir = outputDir
			opts.IncludeMetadata = !noMeta
			exporter, err := export.ForFormat(format, opts)
			if err != nil {
				return ErrUnsupportedFormat(format, export.Formats())
			}

			detail, err := e.workspace().Detail(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}

			if stdout {
				content, err := exporter.Export(detail)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(content)
				return err
			}

			path, err := export.ToFile(detail, exporter, opts)
			if err != nil {
				return err
			}
			if e.opts.jsonOut {
				return writeJSON(cmd.OutOrStdout(), "sessions export", map[string]string{
					"id": detail.Session.ID, "path": path, "mime_type": exporter.MimeType(),
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s Exported to %s\n", RenderStatus(true), path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "markdown", "export format: json, yaml, markdown")
	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "output directory")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum messages to fetch (default api.message_limit)")
	cmd.Flags().BoolVar(&noMeta, "no-metadata", false, "omit front matter and reply details")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "print instead of writing a file")
	return cmd
}
