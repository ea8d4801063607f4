// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/counsel-tui/internal/model"
)

// =============================================================================
// REQUEST / RESPONSE TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message     string `json:"message"`
	SessionID   string `json:"session_id,omitempty"`
	LLMProvider string `json:"llm_provider,omitempty"`
}

// ChatResponse is the backend's reply to a chat message.
type ChatResponse struct {
	Response           string         `json:"response"`
	SessionID          string         `json:"session_id"`
	Classification     string         `json:"classification"`
	SubClassification  string         `json:"sub_classification"`
	Confidence         float64        `json:"confidence"`
	NeedsClarification bool           `json:"needs_clarification"`
	Sources            []model.Source `json:"sources"`
	Disclaimer         string         `json:"disclaimer"`
}

// Metadata returns the annotations to attach to the assistant message.
func (r *ChatResponse) Metadata() model.MessageMetadata {
	conf := r.Confidence
	meta := model.MessageMetadata{
		Classification: r.Classification,
		Confidence:     &conf,
	}
	if len(r.Sources) > 0 {
		meta.Sources = append([]model.Source(nil), r.Sources...)
	}
	return meta
}

// Health is the reply to GET /health.
type Health struct {
	Status    string            `json:"status"`
	Version   string            `json:"version"`
	Timestamp string            `json:"timestamp,omitempty"`
	Services  map[string]string `json:"services,omitempty"`
}

// Healthy reports whether the backend declared itself fully healthy.
func (h *Health) Healthy() bool {
	return h != nil && h.Status == "healthy"
}

type renameRequest struct {
	Title string `json:"title"`
}

// =============================================================================
// WIRE DECODING
// =============================================================================

// wireSession mirrors the backend's session schema. Timestamps are kept as
// strings because the backend emits both RFC 3339 and naive ISO 8601 forms.
type wireSession struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
	MessageCount int     `json:"message_count"`
	LastMessage  *string `json:"last_message"`
}

func (w wireSession) toModel() (model.Session, error) {
	if w.ID == "" {
		return model.Session{}, fmt.Errorf("session without id")
	}
	created, err := parseTime(w.CreatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %s created_at: %w", w.ID, err)
	}
	updated, err := parseTime(w.UpdatedAt)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %s updated_at: %w", w.ID, err)
	}
	s := model.Session{
		ID:           w.ID,
		Title:        w.Title,
		CreatedAt:    created,
		UpdatedAt:    updated,
		MessageCount: w.MessageCount,
	}
	if w.LastMessage != nil {
		s.LastMessage = *w.LastMessage
	}
	return s, nil
}

type wireMessage struct {
	ID        string                 `json:"id"`
	Role      model.Role             `json:"role"`
	Content   string                 `json:"content"`
	CreatedAt string                 `json:"created_at"`
	Metadata  *model.MessageMetadata `json:"metadata"`
}

func (w wireMessage) toModel() (model.Message, error) {
	if !w.Role.Valid() {
		return model.Message{}, fmt.Errorf("message %s: unknown role %q", w.ID, w.Role)
	}
	created, err := parseTime(w.CreatedAt)
	if err != nil {
		return model.Message{}, fmt.Errorf("message %s created_at: %w", w.ID, err)
	}
	m := model.Message{
		ID:        w.ID,
		Role:      w.Role,
		Content:   w.Content,
		CreatedAt: created,
		Status:    model.StatusDelivered,
	}
	// Only assistant messages carry metadata.
	if w.Role == model.RoleAssistant {
		if w.Metadata != nil {
			m.Metadata = w.Metadata.Clone()
		} else {
			m.Metadata = &model.MessageMetadata{}
		}
	}
	return m, nil
}

// timeLayouts are tried in order. Values without a zone are taken as UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTime accepts the timestamp forms the backend produces. An empty
// string yields the zero time.
func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
