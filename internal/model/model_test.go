// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewUserMessage(t *testing.T) {
	a := NewUserMessage("hello")
	b := NewUserMessage("hello")

	assert.Equal(t, RoleUser, a.Role)
	assert.Equal(t, StatusPending, a.Status)
	assert.Nil(t, a.Metadata, "user messages never carry metadata")
	assert.False(t, a.CreatedAt.IsZero())
	assert.NotEqual(t, a.ID, b.ID, "local ids must be unique")
}

func TestNewAssistantMessage_CopiesMetadata(t *testing.T) {
	conf := 0.9
	meta := MessageMetadata{
		Classification: "tenancy",
		Confidence:     &conf,
		Sources:        []Source{{Title: "Residential Tenancies Act", Section: "s.12"}},
	}

	msg := NewAssistantMessage("answer", meta)
	require.NotNil(t, msg.Metadata)
	assert.Equal(t, StatusDelivered, msg.Status)

	// Mutating the input must not leak into the message.
	conf = 0.1
	meta.Sources[0].Title = "changed"
	assert.Equal(t, 0.9, *msg.Metadata.Confidence)
	assert.Equal(t, "Residential Tenancies Act", msg.Metadata.Sources[0].Title)
}

func TestMessage_StatusNotSerialized(t *testing.T) {
	msg := NewUserMessage("hi")
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "pending")

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, StatusDelivered, decoded.Status)
}

func TestCloneMessages_Independent(t *testing.T) {
	conf := 0.5
	orig := []Message{NewAssistantMessage("a", MessageMetadata{Confidence: &conf})}
	clone := CloneMessages(orig)

	*clone[0].Metadata.Confidence = 0.7
	clone[0].Content = "b"

	assert.Equal(t, 0.5, *orig[0].Metadata.Confidence)
	assert.Equal(t, "a", orig[0].Content)
	assert.NotNil(t, CloneMessages(nil))
}

func TestDeliveryStatus_String(t *testing.T) {
	assert.Equal(t, "delivered", StatusDelivered.String())
	assert.Equal(t, "pending", StatusPending.String())
	assert.Equal(t, "failed", StatusFailed.String())
}

func TestRole(t *testing.T) {
	assert.True(t, RoleSystem.Valid())
	assert.False(t, Role("tool").Valid())
	assert.Equal(t, "You", RoleUser.DisplayName())
}

// =============================================================================
// SESSION TESTS
// =============================================================================

func TestTitleFromMessage(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"short", "Deposit question", "Deposit question"},
		{"newlines flattened", "line one\nline two\r\n", "line one line two"},
		{"blank", "   ", DefaultSessionTitle},
		{"long", strings.Repeat("a", 80), strings.Repeat("a", 47) + "..."},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, TitleFromMessage(tc.in))
		})
	}
}

func TestPreview_RuneSafe(t *testing.T) {
	long := strings.Repeat("é", 150)
	got := Preview(long)
	assert.Equal(t, LastMessagePreview, len([]rune(got)))
	assert.Equal(t, "short", Preview("short"))
}

func TestSession_JSONShape(t *testing.T) {
	raw := `{"id":"s1","title":"Deposit","created_at":"2025-01-02T03:04:05Z","updated_at":"2025-01-02T03:04:05Z","message_count":4}`
	var s Session
	require.NoError(t, json.Unmarshal([]byte(raw), &s))
	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, 4, s.MessageCount)
	assert.Empty(t, s.LastMessage)
	assert.Equal(t, "Deposit", s.DisplayTitle())
	assert.Equal(t, DefaultSessionTitle, Session{}.DisplayTitle())
}

// =============================================================================
// STATE TESTS
// =============================================================================

func TestConversationState_FailedMessages(t *testing.T) {
	ok := NewUserMessage("one")
	ok.Status = StatusDelivered
	bad := NewUserMessage("two")
	bad.Status = StatusFailed

	state := ConversationState{Messages: []Message{ok, bad}}
	failed := state.FailedMessages()
	require.Len(t, failed, 1)
	assert.Equal(t, bad.ID, failed[0].ID)
	assert.False(t, state.Bound())
}

func TestDirectoryState_Find(t *testing.T) {
	state := DirectoryState{Sessions: []Session{{ID: "a", Title: "Deposit"}}}
	s, ok := state.Find("a")
	assert.True(t, ok)
	assert.Equal(t, "Deposit", s.Title)
	_, ok = state.Find("b")
	assert.False(t, ok)
}
