// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// SendFunc sends a message. Stream.Send and the workspace's Send both fit.
type SendFunc func(ctx context.Context, content string) (*SendResult, error)

// ResendFunc resends a failed message by id.
type ResendFunc func(ctx context.Context, messageID string) (*SendResult, error)

// LoadFunc opens a session by id.
type LoadFunc func(ctx context.Context, sessionID string) error

// SentMsg reports the completion of a send or resend.
type SentMsg struct {
	Result *SendResult
	Err    error
}

// LoadedMsg reports the completion of a load.
type LoadedMsg struct {
	SessionID string
	Err       error
}

// SendCmd returns a command that sends content and reports a SentMsg.
func SendCmd(ctx context.Context, send SendFunc, content string) tea.Cmd {
	return func() tea.Msg {
		result, err := send(ctx, content)
		return SentMsg{Result: result, Err: err}
	}
}

// ResendCmd returns a command that resends messageID and reports a SentMsg.
func ResendCmd(ctx context.Context, resend ResendFunc, messageID string) tea.Cmd {
	return func() tea.Msg {
		result, err := resend(ctx, messageID)
		return SentMsg{Result: result, Err: err}
	}
}

// LoadCmd returns a command that loads sessionID and reports a LoadedMsg.
func LoadCmd(ctx context.Context, load LoadFunc, sessionID string) tea.Cmd {
	return func() tea.Msg {
		return LoadedMsg{SessionID: sessionID, Err: load(ctx, sessionID)}
	}
}
