// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/counsel-tui/internal/app"
)

// =============================================================================
// MESSAGES
// =============================================================================

// stateChangedMsg means the directory or the conversation published a new
// snapshot.
type stateChangedMsg struct{}

// tokenChangedMsg means the stored credentials changed on disk.
type tokenChangedMsg struct{}

type refreshedMsg struct{ err error }

type deletedMsg struct {
	id  string
	err error
}

type renamedMsg struct {
	id  string
	err error
}

// =============================================================================
// COMMAND CREATORS
// =============================================================================

// waitForSignal blocks until ch fires and then reports msg. A closed channel
// ends the wait without a message.
func waitForSignal(ch <-chan struct{}, msg tea.Msg) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-ch; !ok {
			return nil
		}
		return msg
	}
}

func refreshCmd(ctx context.Context, ws *app.Workspace) tea.Cmd {
	return func() tea.Msg {
		return refreshedMsg{err: ws.Refresh(ctx)}
	}
}

func deleteCmd(ctx context.Context, ws *app.Workspace, id string) tea.Cmd {
	return func() tea.Msg {
		return deletedMsg{id: id, err: ws.Delete(ctx, id)}
	}
}

func renameCmd(ctx context.Context, ws *app.Workspace, id, title string) tea.Cmd {
	return func() tea.Msg {
		return renamedMsg{id: id, err: ws.Rename(ctx, id, title)}
	}
}
