// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for sessions and messages.
//
// This package defines the domain types shared by the gateway, the session
// directory and the conversation stream. Types mirror the backend's JSON
// representation; fields that only exist on the client (such as a message's
// delivery status) are excluded from encoding.
//
// # Key Types
//
//   - Session: Server-assigned conversation thread with summary metadata
//   - Message: Single turn authored by a user, the assistant or the system
//   - MessageMetadata: Classification, confidence and sources (assistant only)
//   - ConversationState: Snapshot of one conversation stream
//   - DirectoryState: Snapshot of the session directory
//
// # Usage
//
// Fabricate an optimistic user message:
//
//	msg := model.NewUserMessage("My landlord won't return my deposit")
//	// msg.Status == model.StatusPending
package model
