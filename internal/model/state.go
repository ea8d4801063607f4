// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// ConversationState is an immutable snapshot of a conversation stream.
// An empty SessionID means the conversation is not yet bound; an empty
// Error means no failure is being reported.
type ConversationState struct {
	SessionID string
	Messages  []Message
	IsLoading bool
	Error     string
}

// Bound reports whether a server-assigned session id has been recorded.
func (s ConversationState) Bound() bool {
	return s.SessionID != ""
}

// FailedMessages returns the user messages whose delivery failed.
func (s ConversationState) FailedMessages() []Message {
	var failed []Message
	for _, m := range s.Messages {
		if m.IsFailed() {
			failed = append(failed, m)
		}
	}
	return failed
}

// DirectoryState is an immutable snapshot of the session directory.
// Sessions are kept in server order (most recent first).
type DirectoryState struct {
	Sessions []Session
	Loading  bool
	Error    string
}

// Find returns the session with the given id.
func (s DirectoryState) Find(id string) (Session, bool) {
	for _, sess := range s.Sessions {
		if sess.ID == id {
			return sess, true
		}
	}
	return Session{}, false
}

// CloneSessions copies a session slice. A nil slice yields an empty one.
func CloneSessions(sessions []Session) []Session {
	out := make([]Session, len(sessions))
	copy(out, sessions)
	return out
}
