// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
package model

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant || r == RoleSystem
}

// =============================================================================
// DELIVERY STATUS
// =============================================================================

// DeliveryStatus tracks whether a locally fabricated message reached the backend.
type DeliveryStatus string

const (
	// StatusDelivered is the zero value: messages loaded from the server are delivered.
	StatusDelivered DeliveryStatus = ""
	StatusPending   DeliveryStatus = "pending"
	StatusFailed    DeliveryStatus = "failed"
)

// String returns a printable form of the status.
func (s DeliveryStatus) String() string {
	if s == StatusDelivered {
		return "delivered"
	}
	return string(s)
}

// =============================================================================
// MESSAGE TYPES
// =============================================================================

// Source is a reference document cited by an assistant reply.
type Source struct {
	Title     string `json:"title" yaml:"title"`
	Section   string `json:"section" yaml:"section"`
	Content   string `json:"content" yaml:"content"`
	SourceURL string `json:"source_url,omitempty" yaml:"source_url,omitempty"`
}

// MessageMetadata holds backend annotations. Only assistant messages carry it.
type MessageMetadata struct {
	Classification string   `json:"classification,omitempty" yaml:"classification,omitempty"`
	Confidence     *float64 `json:"confidence,omitempty" yaml:"confidence,omitempty"` // in [0,1]
	Sources        []Source `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// Clone returns a deep copy of the metadata.
func (m *MessageMetadata) Clone() *MessageMetadata {
	if m == nil {
		return nil
	}
	clone := &MessageMetadata{Classification: m.Classification}
	if m.Confidence != nil {
		c := *m.Confidence
		clone.Confidence = &c
	}
	if m.Sources != nil {
		clone.Sources = make([]Source, len(m.Sources))
		copy(clone.Sources, m.Sources)
	}
	return clone
}

// Message is one turn in a session.
type Message struct {
	ID        string           `json:"id" yaml:"id"`
	Role      Role             `json:"role" yaml:"role"`
	Content   string           `json:"content" yaml:"content"`
	CreatedAt time.Time        `json:"created_at" yaml:"created_at"`
	Metadata  *MessageMetadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Status is client-only; it is never sent to or read from the backend.
	Status DeliveryStatus `json:"-" yaml:"-"`
}

// NewUserMessage fabricates an optimistic user message with a local id.
func NewUserMessage(content string) Message {
	return Message{
		ID:        NewLocalID(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now(),
		Status:    StatusPending,
	}
}

// NewAssistantMessage builds an assistant message from a backend reply.
// The metadata pointer is always set, even when empty.
func NewAssistantMessage(content string, meta MessageMetadata) Message {
	return Message{
		ID:        NewLocalID(),
		Role:      RoleAssistant,
		Content:   content,
		CreatedAt: time.Now(),
		Metadata:  meta.Clone(),
	}
}

// NewLocalID returns a unique identifier for a client-fabricated message.
func NewLocalID() string {
	return uuid.NewString()
}

// IsPending reports whether the message is still waiting for the backend.
func (m Message) IsPending() bool {
	return m.Status == StatusPending
}

// IsFailed reports whether delivery of the message failed.
func (m Message) IsFailed() bool {
	return m.Status == StatusFailed
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	m.Metadata = m.Metadata.Clone()
	return m
}

// CloneMessages deep-copies a message slice. A nil slice yields an empty one.
func CloneMessages(msgs []Message) []Message {
	out := make([]Message, len(msgs))
	for i, m := range msgs {
		out[i] = m.Clone()
	}
	return out
}
