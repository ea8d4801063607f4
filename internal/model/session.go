// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"time"

	"github.com/jeranaias/counsel-tui/internal/util"
)

// Limits enforced by the backend and mirrored locally.
const (
	MaxTitleRunes       = 200
	MaxMessageRunes     = 5000
	LastMessagePreview  = 100
	DefaultTitlePreview = 50
)

// DefaultSessionTitle is the title the backend gives a session it creates.
const DefaultSessionTitle = "New Conversation"

// Session is a persisted, server-identified conversation thread.
type Session struct {
	ID           string    `json:"id" yaml:"id"`
	Title        string    `json:"title" yaml:"title"`
	CreatedAt    time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" yaml:"updated_at"`
	MessageCount int       `json:"message_count" yaml:"message_count"`
	LastMessage  string    `json:"last_message,omitempty" yaml:"last_message,omitempty"`
}

// DisplayTitle returns the title or a placeholder for untitled sessions.
func (s Session) DisplayTitle() string {
	if strings.TrimSpace(s.Title) == "" {
		return DefaultSessionTitle
	}
	return s.Title
}

// TitleFromMessage derives a session title from the first user message:
// newlines are flattened and the result is cut to DefaultTitlePreview runes.
func TitleFromMessage(content string) string {
	content = strings.ReplaceAll(content, "\r", "")
	content = strings.ReplaceAll(content, "\n", " ")
	content = strings.TrimSpace(content)
	if content == "" {
		return DefaultSessionTitle
	}
	return util.TruncateRunes(content, DefaultTitlePreview)
}

// Preview cuts s to LastMessagePreview runes.
func Preview(s string) string {
	runes := []rune(s)
	if len(runes) > LastMessagePreview {
		return string(runes[:LastMessagePreview])
	}
	return s
}
