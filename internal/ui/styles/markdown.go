// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders assistant replies. A nil renderer or a render
// failure falls back to the raw text.
type MarkdownRenderer struct {
	tr *glamour.TermRenderer
}

// NewMarkdownRenderer builds a renderer for the given theme ("dark",
// "light", "auto" or "plain") wrapped at width columns.
func NewMarkdownRenderer(theme string, width int) *MarkdownRenderer {
	if width <= 0 {
		width = 80
	}
	var styleOpt glamour.TermRendererOption
	switch theme {
	case "light":
		styleOpt = glamour.WithStylePath("light")
	case "plain":
		styleOpt = glamour.WithStylePath("notty")
	case "auto":
		styleOpt = glamour.WithAutoStyle()
	default:
		styleOpt = glamour.WithStylePath("dark")
	}
	tr, err := glamour.NewTermRenderer(styleOpt, glamour.WithWordWrap(width))
	if err != nil {
		return &MarkdownRenderer{}
	}
	return &MarkdownRenderer{tr: tr}
}

// Render returns content as styled terminal text.
func (r *MarkdownRenderer) Render(content string) string {
	if r == nil || r.tr == nil {
		return content
	}
	out, err := r.tr.Render(content)
	if err != nil {
		return content
	}
	return strings.Trim(out, "\n")
}
