// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/jeranaias/counsel-tui/internal/model"
)

// Theme holds the styled components of the TUI.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	ColorProfile termenv.Profile

	renderer *lipgloss.Renderer

	// Layout dimensions
	Width  int
	Height int

	// ==========================================================================
	// HEADER
	// ==========================================================================

	Header      lipgloss.Style
	HeaderBrand lipgloss.Style
	HeaderTitle lipgloss.Style

	// ==========================================================================
	// SESSION SIDEBAR
	// ==========================================================================

	Sidebar         lipgloss.Style
	SidebarItem     lipgloss.Style
	SidebarSelected lipgloss.Style
	SidebarActive   lipgloss.Style
	SidebarMeta     lipgloss.Style

	// ==========================================================================
	// MESSAGES
	// ==========================================================================

	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	SystemLabel    lipgloss.Style
	UserBody       lipgloss.Style
	AssistantBody  lipgloss.Style
	Pending        lipgloss.Style
	Failed         lipgloss.Style
	Metadata       lipgloss.Style

	// ==========================================================================
	// INPUT AND STATUS
	// ==========================================================================

	Input     lipgloss.Style
	Prompt    lipgloss.Style
	StatusBar lipgloss.Style
	ErrorBar  lipgloss.Style
	Help      lipgloss.Style
}

// NewTheme creates a theme for the current terminal.
func NewTheme() *Theme {
	return NewThemeWithProfile(termenv.ColorProfile(), termenv.HasDarkBackground())
}

// NewThemeWithProfile creates a theme for an explicit color profile.
// termenv.Ascii yields plain text.
func NewThemeWithProfile(profile termenv.Profile, dark bool) *Theme {
	r := lipgloss.NewRenderer(io.Discard)
	r.SetColorProfile(profile)
	r.SetHasDarkBackground(dark)
	t := &Theme{IsDark: dark, ColorProfile: profile, renderer: r}
	t.initStyles()
	return t
}

func (t *Theme) initStyles() {
	t.Header = t.renderer.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1)
	t.HeaderBrand = t.renderer.NewStyle().Bold(true).Foreground(Cyan)
	t.HeaderTitle = t.renderer.NewStyle().Foreground(TextSecondary)

	t.Sidebar = t.renderer.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderRight(true).
		BorderForeground(Overlay).
		PaddingRight(1)
	t.SidebarItem = t.renderer.NewStyle().Foreground(TextPrimary)
	t.SidebarSelected = t.renderer.NewStyle().
		Foreground(TextPrimary).
		Background(SelectionBg).
		Bold(true)
	t.SidebarActive = t.renderer.NewStyle().Foreground(Cyan)
	t.SidebarMeta = t.renderer.NewStyle().Foreground(TextMuted)

	t.UserLabel = t.renderer.NewStyle().Bold(true).Foreground(Cyan)
	t.AssistantLabel = t.renderer.NewStyle().Bold(true).Foreground(Purple)
	t.SystemLabel = t.renderer.NewStyle().Bold(true).Foreground(Amber)
	t.UserBody = t.renderer.NewStyle().
		Foreground(UserFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBorder).
		PaddingLeft(1)
	t.AssistantBody = t.renderer.NewStyle().
		Foreground(ReplyFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(ReplyBorder).
		PaddingLeft(1)
	t.Pending = t.renderer.NewStyle().Foreground(Amber).Italic(true)
	t.Failed = t.renderer.NewStyle().Foreground(Rose).Bold(true)
	t.Metadata = t.renderer.NewStyle().Foreground(TextMuted).Italic(true)

	t.Input = t.renderer.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)
	t.Prompt = t.renderer.NewStyle().Foreground(Cyan).Bold(true)
	t.StatusBar = t.renderer.NewStyle().
		Foreground(TextSecondary).
		Background(SurfaceDim).
		Padding(0, 1)
	t.ErrorBar = t.renderer.NewStyle().
		Foreground(Rose).
		Bold(true).
		Padding(0, 1)
	t.Help = t.renderer.NewStyle().Foreground(TextMuted)
}

// SetSize updates the theme dimensions for responsive layouts.
func (t *Theme) SetSize(width, height int) {
	t.Width = width
	t.Height = height
}

// LayoutMode represents the current responsive layout mode.
type LayoutMode int

const (
	LayoutNarrow LayoutMode = iota // < 60 columns, sidebar hidden
	LayoutMedium                   // 60-100 columns
	LayoutWide                     // > 100 columns
)

// GetLayoutMode returns the current layout mode based on width.
func (t *Theme) GetLayoutMode() LayoutMode {
	if t.Width < 60 {
		return LayoutNarrow
	}
	if t.Width < 100 {
		return LayoutMedium
	}
	return LayoutWide
}

// SidebarWidth returns the session list width for the current layout.
func (t *Theme) SidebarWidth() int {
	switch t.GetLayoutMode() {
	case LayoutNarrow:
		return 0
	case LayoutMedium:
		return 24
	default:
		return 32
	}
}

// StatusMarker returns the marker for a message's delivery status.
// Delivered messages have none.
func (t *Theme) StatusMarker(status model.DeliveryStatus) string {
	switch status {
	case model.StatusPending:
		return t.Pending.Render("sending...")
	case model.StatusFailed:
		return t.Failed.Render(StatusIndicators.Error + " not delivered, press ctrl+r to retry")
	default:
		return ""
	}
}

// RoleLabel renders the heading for a message role.
func (t *Theme) RoleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return t.UserLabel.Render(role.DisplayName())
	case model.RoleAssistant:
		return t.AssistantLabel.Render(role.DisplayName())
	default:
		return t.SystemLabel.Render(role.DisplayName())
	}
}
