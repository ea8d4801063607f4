// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api is the HTTP gateway to the counsel chat backend.
//
// Every operation performs exactly one request. A bearer token is obtained
// from an auth.TokenSource immediately before each call, so token refreshes
// are picked up without rebuilding the client. Nothing is retried.
//
// # Key Types
//
//   - Client: chat, session and health endpoints
//   - Error: typed failure carrying a Kind and a human-readable message
//   - ChatResponse: reply to POST /api/chat
//   - Health: reply to GET /health
//
// # Usage
//
//	client := api.NewClient("http://localhost:8000", auth.FileSource(path)).
//	    WithTimeout(30 * time.Second).
//	    WithLogger(logger)
//	resp, err := client.SendMessage(ctx, "Hello", "")
//	if errors.Is(err, api.ErrAuth) {
//	    // prompt for login
//	}
//
// # Failures
//
// Failures are *Error values whose Error() is the message extracted from the
// response body, or a fixed per-operation fallback. Use errors.Is with the
// Err* kind sentinels to branch on the failure class.
package api
