// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/model"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports sessions as a Markdown transcript.
type MarkdownExporter struct {
	options *Options
}

// NewMarkdownExporter creates a new Markdown exporter.
func NewMarkdownExporter(opts *Options) *MarkdownExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &MarkdownExporter{options: opts}
}

// frontMatter is the YAML header written ahead of the transcript.
type frontMatter struct {
	Title     string `yaml:"title"`
	SessionID string `yaml:"session_id"`
	Created   string `yaml:"created,omitempty"`
	Updated   string `yaml:"updated,omitempty"`
	Messages  int    `yaml:"messages"`
	Exported  string `yaml:"exported"`
	Generator string `yaml:"generator"`
}

// Export converts a session to Markdown.
func (e *MarkdownExporter) Export(detail *app.SessionDetail) ([]byte, error) {
	if detail == nil {
		return nil, ErrNilSession
	}
	s := detail.Session
	var sb strings.Builder

	if e.options.IncludeMetadata {
		fm := frontMatter{
			Title:     s.DisplayTitle(),
			SessionID: s.ID,
			Messages:  len(detail.Messages),
			Exported:  e.options.now().Format(time.RFC3339),
			Generator: "counsel",
		}
		if !s.CreatedAt.IsZero() {
			fm.Created = s.CreatedAt.Format(time.RFC3339)
		}
		if !s.UpdatedAt.IsZero() {
			fm.Updated = s.UpdatedAt.Format(time.RFC3339)
		}
		header, err := yaml.Marshal(fm)
		if err != nil {
			return nil, fmt.Errorf("front matter: %w", err)
		}
		sb.WriteString("---\n")
		sb.Write(header)
		sb.WriteString("---\n\n")
	}

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(s.DisplayTitle()))

	if e.options.IncludeMetadata {
		sb.WriteString("## Session Information\n\n")
		fmt.Fprintf(&sb, "- **Created**: %s\n", formatTimestamp(s.CreatedAt))
		fmt.Fprintf(&sb, "- **Last Updated**: %s\n", formatTimestamp(s.UpdatedAt))
		fmt.Fprintf(&sb, "- **Messages**: %d\n", len(detail.Messages))
		sb.WriteString("\n---\n\n")
	}

	sb.WriteString("## Conversation\n\n")
	if len(detail.Messages) == 0 {
		sb.WriteString("*No messages.*\n")
	}

	for i, msg := range detail.Messages {
		label := msg.Role.DisplayName()
		if label == "" {
			label = "Unknown"
		}
		if e.options.IncludeTimestamps && !msg.CreatedAt.IsZero() {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		sb.WriteString(strings.TrimSpace(msg.Content))
		sb.WriteString("\n\n")

		if msg.Role == model.RoleAssistant && e.options.IncludeMetadata {
			if details := formatMetadata(msg.Metadata); details != "" {
				sb.WriteString(details)
				sb.WriteString("\n\n")
			}
		}

		if i < len(detail.Messages)-1 {
			sb.WriteString("---\n\n")
		}
	}

	sb.WriteString("\n---\n\n")
	fmt.Fprintf(&sb, "*Exported from counsel on %s*\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string { return ".md" }

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string { return "text/markdown" }

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

// formatMetadata renders classification, confidence and cited sources.
func formatMetadata(meta *model.MessageMetadata) string {
	if meta == nil {
		return ""
	}
	var parts []string
	if meta.Classification != "" {
		parts = append(parts, "Classification: "+meta.Classification)
	}
	if meta.Confidence != nil {
		parts = append(parts, fmt.Sprintf("Confidence: %.0f%%", *meta.Confidence*100))
	}

	var sb strings.Builder
	if len(parts) > 0 {
		fmt.Fprintf(&sb, "<sub>%s</sub>", strings.Join(parts, " | "))
	}
	if len(meta.Sources) > 0 {
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		sb.WriteString("**Sources**:\n")
		for _, src := range meta.Sources {
			title := escapeMarkdown(src.Title)
			if src.Section != "" {
				title += " (" + escapeMarkdown(src.Section) + ")"
			}
			if src.SourceURL != "" {
				fmt.Fprintf(&sb, "\n- [%s](%s)", title, src.SourceURL)
			} else {
				fmt.Fprintf(&sb, "\n- %s", title)
			}
		}
	}
	return sb.String()
}

// escapeMarkdown escapes characters that would break headings and links.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}
