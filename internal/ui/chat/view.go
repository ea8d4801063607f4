// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/util"
)

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	body := m.viewport.View()
	if w := m.theme.SidebarWidth(); w > 0 {
		sidebar := m.theme.Sidebar.
			Width(w).
			Height(m.viewport.Height).
			Render(m.renderSidebar(w))
		body = lipgloss.JoinHorizontal(lipgloss.Top, sidebar, " ", body)
	}

	parts := []string{m.renderHeader(), body, m.renderInput(), m.renderStatus()}
	if m.showHelp {
		parts = append(parts, m.help.FullHelpView(m.keys.FullHelp()))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// =============================================================================
// HEADER
// =============================================================================

func (m Model) renderHeader() string {
	title := util.TruncateWidth(m.activeTitle(), max(m.width-20, 10))
	line := m.theme.HeaderBrand.Render("counsel") + "  " + m.theme.HeaderTitle.Render(title)
	if m.busy() {
		line += "  " + m.spinner.View()
	}
	return m.theme.Header.Width(m.width).Render(line)
}

// =============================================================================
// SIDEBAR
// =============================================================================

func (m Model) renderSidebar(width int) string {
	var sb strings.Builder
	if m.dir.Loading {
		sb.WriteString(m.theme.SidebarMeta.Render("refreshing..."))
		sb.WriteString("\n")
	}
	if len(m.dir.Sessions) == 0 && !m.dir.Loading {
		sb.WriteString(m.theme.SidebarMeta.Render("No sessions yet"))
		return sb.String()
	}

	for i, s := range m.dir.Sessions {
		marker := "  "
		if s.ID == m.conv.SessionID {
			marker = m.theme.SidebarActive.Render("* ")
		}
		title := util.TruncateWidth(util.SingleLine(s.DisplayTitle()), width-2)
		style := m.theme.SidebarItem
		if i == m.selected && m.focus == focusSidebar {
			style = m.theme.SidebarSelected
		}
		sb.WriteString(marker + style.Render(title))
		sb.WriteString("\n")

		meta := fmt.Sprintf("  %d msgs", s.MessageCount)
		if !s.UpdatedAt.IsZero() {
			meta += " · " + s.UpdatedAt.Local().Format("Jan 2 15:04")
		}
		if s.ID == m.pendingDelete {
			meta = "  delete? press d"
		}
		sb.WriteString(m.theme.SidebarMeta.Render(util.TruncateWidth(meta, width)))
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

// =============================================================================
// CONVERSATION
// =============================================================================

func (m Model) renderMessages(width int) string {
	if len(m.conv.Messages) == 0 {
		if m.conv.IsLoading {
			return m.theme.SidebarMeta.Render("Loading conversation...")
		}
		return m.theme.Help.Render("Start a new conversation by typing below.")
	}

	var sb strings.Builder
	for i, msg := range m.conv.Messages {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString(m.theme.RoleLabel(msg.Role))
		if marker := m.theme.StatusMarker(msg.Status); marker != "" {
			sb.WriteString("  " + marker)
		}
		sb.WriteString("\n")
		sb.WriteString(m.renderBody(msg, width))
		if meta := m.renderMetadata(msg.Metadata); meta != "" {
			sb.WriteString("\n" + meta)
		}
	}
	return sb.String()
}

func (m Model) renderBody(msg model.Message, width int) string {
	inner := width - 2
	if inner < 10 {
		inner = 10
	}
	if msg.Role == model.RoleAssistant {
		content := msg.Content
		if m.md != nil {
			content = m.md.Render(content)
		}
		return m.theme.AssistantBody.Width(inner).Render(content)
	}
	return m.theme.UserBody.Width(inner).Render(msg.Content)
}

func (m Model) renderMetadata(meta *model.MessageMetadata) string {
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
	if n := len(meta.Sources); n > 0 {
		names := make([]string, 0, n)
		for _, src := range meta.Sources {
			names = append(names, src.Title)
		}
		parts = append(parts, "sources: "+strings.Join(names, ", "))
	}
	if len(parts) == 0 {
		return ""
	}
	return m.theme.Metadata.Render(strings.Join(parts, " | "))
}

// =============================================================================
// INPUT AND STATUS
// =============================================================================

func (m Model) renderInput() string {
	view := m.input.View()
	if m.mode == modeRename {
		view = m.theme.Prompt.Render("rename: ") + view
	}
	return m.theme.Input.Width(max(m.width-2, 10)).Render(view)
}

func (m Model) renderStatus() string {
	switch {
	case m.conv.Error != "":
		return m.theme.ErrorBar.Render(m.conv.Error + "  (esc to dismiss)")
	case m.dir.Error != "":
		return m.theme.ErrorBar.Render(m.dir.Error + "  (esc to dismiss)")
	case m.notice != "":
		return m.theme.StatusBar.Width(m.width).Render(m.notice)
	default:
		return m.theme.StatusBar.Width(m.width).Render(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
}
