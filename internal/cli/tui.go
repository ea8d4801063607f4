// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/counsel-tui/internal/auth"
	"github.com/jeranaias/counsel-tui/internal/ui/chat"
	"github.com/jeranaias/counsel-tui/internal/ui/styles"
)

func newTUICmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI (default)",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd, e)
		},
	}
}

// runTUI runs the full-screen UI until the user quits. A change to the
// token file makes the UI refresh the session list.
func runTUI(cmd *cobra.Command, e *env) error {
	if !IsTTY() || !IsStdoutTTY() {
		return ErrNoTTY
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	tokens := make(chan struct{}, 1)
	notify := func() {
		select {
		case tokens <- struct{}{}:
		default:
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	watcher, err := auth.NewFileWatcher(e.cfg.Auth.TokenFile, notify, e.logger)
	if err != nil {
		e.logger.Warn("token file not watched", zap.Error(err))
	} else {
		defer watcher.Close()
		g.Go(func() error {
			watcher.Run(gctx)
			return nil
		})
	}

	theme := styles.NewThemeWithProfile(e.profile, termenv.HasDarkBackground())
	m := chat.New(ctx, e.workspace(), chat.Options{
		Theme:         theme,
		MarkdownTheme: e.markdownTheme(),
		TokenChanges:  tokens,
	})

	g.Go(func() error {
		defer cancel()
		final, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(gctx)).Run()
		if fm, ok := final.(chat.Model); ok {
			fm.Close()
		} else {
			m.Close()
		}
		return err
	})
	return g.Wait()
}
