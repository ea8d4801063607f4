// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// styles.go - Shared styles for command output. Colors come from the TUI
// palette so both front ends look alike.

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/counsel-tui/internal/ui/styles"
)

var (
	// TitleStyle is used for command titles and headers
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(styles.Cyan)

	// LabelStyle is used for field labels
	LabelStyle = lipgloss.NewStyle().Foreground(styles.TextSecondary).Width(16)

	// ValueStyle is used for regular values
	ValueStyle = lipgloss.NewStyle().Foreground(styles.TextPrimary)

	// SuccessStyle is used for success messages and OK statuses
	SuccessStyle = lipgloss.NewStyle().Foreground(styles.Emerald).Bold(true)

	// ErrorStyle is used for error messages and failures
	ErrorStyle = lipgloss.NewStyle().Foreground(styles.Rose).Bold(true)

	// WarningStyle is used for warnings
	WarningStyle = lipgloss.NewStyle().Foreground(styles.Amber)

	// DimStyle is used for secondary information and hints
	DimStyle = lipgloss.NewStyle().Foreground(styles.TextMuted)

	// PromptStyle is the chat prompt
	PromptStyle = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)

	// UserStyle and AssistantStyle label transcript turns
	UserStyle      = lipgloss.NewStyle().Foreground(styles.Cyan).Bold(true)
	AssistantStyle = lipgloss.NewStyle().Foreground(styles.Purple).Bold(true)
)

// RenderSeparator renders a horizontal rule of the given width.
func RenderSeparator(width int) string {
	if width <= 0 {
		width = 40
	}
	return DimStyle.Render(strings.Repeat("─", width))
}

// RenderStatus renders a status indicator with appropriate color.
func RenderStatus(ok bool) string {
	if ok {
		return SuccessStyle.Render(styles.StatusIndicators.Success)
	}
	return ErrorStyle.Render("[FAIL]")
}

// RenderField renders "label value" with an aligned label.
func RenderField(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value)
}
