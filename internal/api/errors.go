// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// =============================================================================
// FAILURE KINDS
// =============================================================================

// Kind sentinels. Every *Error matches exactly one of them with errors.Is.
var (
	// ErrNetwork indicates no response was received (transport failure or cancellation).
	ErrNetwork = errors.New("network failure")

	// ErrAuth indicates the backend rejected the credentials (401, 403) or no
	// credential could be obtained.
	ErrAuth = errors.New("authentication failed")

	// ErrNotFound indicates the session does not exist or is not visible.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates the backend rejected the input (400, 422).
	ErrValidation = errors.New("validation failed")

	// ErrServer indicates a backend fault (5xx).
	ErrServer = errors.New("server error")

	// ErrProtocol indicates a success status with a body that could not be decoded.
	ErrProtocol = errors.New("malformed response")

	// ErrUnexpected covers any other non-success status.
	ErrUnexpected = errors.New("unexpected status")
)

// Fallback messages used when the response body carries no usable message.
const (
	msgSend           = "Failed to send message"
	msgListSessions   = "Failed to fetch sessions"
	msgGetSession     = "Failed to fetch session"
	msgListMessages   = "Failed to fetch messages"
	msgUpdateSession  = "Failed to update session"
	msgDeleteSession  = "Failed to delete session"
	msgHealth         = "Health check failed"
	msgUnknownFailure = "Unknown error"
)

// Error is a failed gateway operation.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error
	// Status is the HTTP status, or 0 when no response was received.
	Status int
	// Message is the user-facing description.
	Message string
	// Op names the operation, e.g. "list sessions".
	Op string
	// Err is the underlying transport or decode error, if any.
	Err error
}

// Error returns the user-facing message only, so state containers can
// surface it verbatim.
func (e *Error) Error() string {
	if e.Message == "" {
		return msgUnknownFailure
	}
	return e.Message
}

// Is matches the Kind sentinel.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the failure kind of err, or nil if err is not a gateway error.
func KindOf(err error) error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return nil
}

// IsRetryable reports whether a user-initiated retry could plausibly succeed.
// The client itself never retries.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrServer)
}

// kindForStatus maps a non-success HTTP status to a failure kind.
func kindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrAuth
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	case status >= 500 && status < 600:
		return ErrServer
	default:
		return ErrUnexpected
	}
}

// =============================================================================
// ERROR RESPONSE PARSING
// =============================================================================

// errorBody covers the error envelopes the backend and its proxies produce:
// FastAPI {"detail": "..."} or {"detail": [{"msg": "..."}]},
// {"error": "..."} or {"error": {"message": "..."}}, and {"message": "..."}.
type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

// handleErrorResponse converts a non-success response into an *Error.
func handleErrorResponse(op, fallback string, status int, body []byte) *Error {
	msg := extractMessage(body)
	if msg == "" {
		msg = fallback
	}
	return &Error{
		Kind:    kindForStatus(status),
		Status:  status,
		Message: msg,
		Op:      op,
	}
}

// extractMessage returns the first non-empty message found in body.
func extractMessage(body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return ""
	}
	if msg := detailMessage(eb.Detail); msg != "" {
		return msg
	}
	if msg := errorFieldMessage(eb.Error); msg != "" {
		return msg
	}
	return strings.TrimSpace(eb.Message)
}

func detailMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		for _, it := range items {
			if m := strings.TrimSpace(it.Msg); m != "" {
				return m
			}
		}
	}
	return ""
}

func errorFieldMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		return strings.TrimSpace(obj.Message)
	}
	return ""
}
