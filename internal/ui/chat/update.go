// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/counsel-tui/internal/conversation"
	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/ui/styles"
)

// =============================================================================
// RESIZE
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) Model {
	m.width, m.height = msg.Width, msg.Height
	m.theme.SetSize(msg.Width, msg.Height)

	sidebar := m.theme.SidebarWidth()
	bodyWidth := msg.Width
	if sidebar > 0 {
		bodyWidth -= sidebar + 2 // border and padding
		if m.focus == focusSidebar && m.theme.GetLayoutMode() == styles.LayoutNarrow {
			m.focus = focusInput
		}
	}
	if bodyWidth < 20 {
		bodyWidth = 20
	}
	bodyHeight := msg.Height - headerHeight - inputHeight - statusHeight
	if bodyHeight < 3 {
		bodyHeight = 3
	}

	m.viewport.Width = bodyWidth
	m.viewport.Height = bodyHeight
	m.input.Width = msg.Width - 6
	m.help.Width = msg.Width

	if m.mdTheme != "" {
		m.md = styles.NewMarkdownRenderer(m.mdTheme, bodyWidth-2)
	}
	m.ready = true
	return m.syncState()
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = !m.showHelp
		return m, nil

	case key.Matches(msg, m.keys.Dismiss):
		return m.dismiss(), nil

	case key.Matches(msg, m.keys.Focus):
		return m.toggleFocus(), nil

	case key.Matches(msg, m.keys.NewChat):
		m.ws.NewChat()
		m.mode = modeChat
		m.focus = focusInput
		m.input.Focus()
		m.notice = ""
		return m.syncState(), nil

	case key.Matches(msg, m.keys.Refresh):
		return m, refreshCmd(m.ctx, m.ws)

	case key.Matches(msg, m.keys.Retry):
		failed := m.conv.FailedMessages()
		if len(failed) == 0 {
			m.notice = "Nothing to resend"
			return m, nil
		}
		id := failed[len(failed)-1].ID
		return m, conversation.ResendCmd(m.ctx, m.ws.Resend, id)

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	if m.focus == focusSidebar {
		return m.handleSidebarKey(msg)
	}
	return m.handleInputKey(msg)
}

func (m Model) handleSidebarKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	sessions := m.dir.Sessions
	if len(sessions) == 0 {
		return m, nil
	}
	sel := sessions[m.selected]

	switch {
	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
		}
		m.pendingDelete = ""

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(sessions)-1 {
			m.selected++
		}
		m.pendingDelete = ""

	case key.Matches(msg, m.keys.Submit):
		m.pendingDelete = ""
		return m, conversation.LoadCmd(m.ctx, m.ws.Open, sel.ID)

	case key.Matches(msg, m.keys.Rename):
		m.mode = modeRename
		m.renameTarget = sel.ID
		m.focus = focusInput
		m.input.SetValue(sel.Title)
		m.input.CursorEnd()
		m.input.Focus()

	case key.Matches(msg, m.keys.Delete):
		if m.pendingDelete != sel.ID {
			m.pendingDelete = sel.ID
			m.notice = "Press d again to delete \"" + sel.DisplayTitle() + "\""
			return m, nil
		}
		m.pendingDelete = ""
		m.notice = ""
		return m, deleteCmd(m.ctx, m.ws, sel.ID)
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !key.Matches(msg, m.keys.Submit) {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	value := m.input.Value()
	if m.mode == modeRename {
		target := m.renameTarget
		m.mode = modeChat
		m.renameTarget = ""
		m.input.Reset()
		return m, renameCmd(m.ctx, m.ws, target, value)
	}

	if strings.TrimSpace(value) == "" {
		return m, nil
	}
	if m.busy() {
		m.notice = "Wait for the current reply"
		return m, nil
	}
	m.input.Reset()
	m.notice = ""
	return m, conversation.SendCmd(m.ctx, m.ws.Send, value)
}

func (m Model) toggleFocus() Model {
	if m.focus == focusSidebar || m.theme.SidebarWidth() == 0 {
		m.focus = focusInput
		m.input.Focus()
		return m
	}
	m.focus = focusSidebar
	m.input.Blur()
	return m
}

func (m Model) dismiss() Model {
	switch {
	case m.mode == modeRename:
		m.mode = modeChat
		m.renameTarget = ""
		m.input.Reset()
	case m.pendingDelete != "":
		m.pendingDelete = ""
	default:
		m.ws.Stream().DismissError()
		m.ws.Directory().DismissError()
	}
	m.notice = ""
	return m.syncState()
}

// noticeFor turns a request error into a status line. Gateway failures are
// already reported through the snapshots, and superseded requests are
// silent.
func noticeFor(err error) string {
	switch {
	case err == nil, errors.Is(err, conversation.ErrSuperseded):
		return ""
	case errors.Is(err, conversation.ErrEmptyMessage),
		errors.Is(err, conversation.ErrMessageTooLong),
		errors.Is(err, conversation.ErrBusy),
		errors.Is(err, conversation.ErrNotResendable):
		return err.Error()
	default:
		return ""
	}
}

// activeTitle returns the title of the bound session.
func (m Model) activeTitle() string {
	if !m.conv.Bound() {
		return model.DefaultSessionTitle
	}
	if s, ok := m.dir.Find(m.conv.SessionID); ok {
		return s.DisplayTitle()
	}
	return m.conv.SessionID
}
