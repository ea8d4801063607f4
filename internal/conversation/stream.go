// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"
	"errors"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/util"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyMessage is returned for blank content.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrMessageTooLong is returned for content over model.MaxMessageRunes.
	ErrMessageTooLong = errors.New("message exceeds 5000 characters")

	// ErrBusy is returned when a request is already outstanding.
	ErrBusy = errors.New("a request is already in progress")

	// ErrSuperseded is returned when navigation made a request's result obsolete.
	ErrSuperseded = errors.New("request superseded by navigation")

	// ErrNotResendable is returned by Resend for unknown or undelivered-but-not-failed messages.
	ErrNotResendable = errors.New("message cannot be resent")
)

// =============================================================================
// TYPES
// =============================================================================

// Gateway is the subset of the backend API the stream needs.
type Gateway interface {
	SendMessage(ctx context.Context, content, sessionID string) (*api.ChatResponse, error)
	ListMessages(ctx context.Context, sessionID string, limit int) ([]model.Message, error)
}

// Phase is the coarse lifecycle state of a stream.
type Phase int

const (
	PhaseEmpty Phase = iota
	PhasePending
	PhaseSettled
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseEmpty:
		return "empty"
	case PhasePending:
		return "pending"
	case PhaseSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// SendResult describes the outcome of a successful Send or Resend.
type SendResult struct {
	// Response is the backend reply.
	Response *api.ChatResponse
	// Message is the user message as it was sent.
	Message model.Message
	// Applied is false when navigation happened before the reply arrived;
	// the reply was then discarded.
	Applied bool
	// Created is true when the request was issued unbound, i.e. the backend
	// created Response.SessionID for it.
	Created bool
}

// Stream is the message log of the active session. It is safe for
// concurrent use; the lock is never held across a network call.
type Stream struct {
	gw     Gateway
	limit  int
	logger *zap.Logger

	mu    sync.Mutex
	state model.ConversationState
	// generation increments on every Load and Clear.
	generation uint64
	// busy is set while a request of the current generation is outstanding.
	busy   bool
	cancel context.CancelFunc

	listeners util.Broadcaster[model.ConversationState]
}

// Option configures a Stream.
type Option func(*Stream)

// WithMessageLimit sets how many messages Load fetches.
func WithMessageLimit(limit int) Option {
	return func(s *Stream) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithLogger sets the stream's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Stream) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty, unbound stream.
func New(gw Gateway, opts ...Option) *Stream {
	s := &Stream{
		gw:     gw,
		limit:  api.DefaultMessageLimit,
		logger: zap.NewNop(),
		state:  model.ConversationState{Messages: []model.Message{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("conversation")
	return s
}

// =============================================================================
// QUERIES
// =============================================================================

// State returns a deep copy of the current state.
func (s *Stream) State() model.ConversationState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Phase reports the lifecycle phase.
func (s *Stream) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.state.IsLoading:
		return PhasePending
	case len(s.state.Messages) == 0 && s.state.SessionID == "":
		return PhaseEmpty
	default:
		return PhaseSettled
	}
}

// Bound reports whether the stream is associated with a server session.
func (s *Stream) Bound() bool {
	return s.SessionID() != ""
}

// SessionID returns the bound session id, or "" when unbound.
func (s *Stream) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.SessionID
}

// Subscribe registers fn to receive a snapshot after each state change.
// fn must not mutate the stream.
func (s *Stream) Subscribe(fn func(model.ConversationState)) (unsubscribe func()) {
	return s.listeners.Subscribe(fn)
}

// =============================================================================
// NAVIGATION
// =============================================================================

// Load replaces the log with the messages of sessionID and binds the stream
// to it. Any outstanding request is cancelled and its result discarded. On
// failure the log and binding are left as they were and Error is set; user
// messages whose send was cancelled by the load are marked failed so they
// can be resent.
func (s *Stream) Load(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	gen := s.supersedeLocked()
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.busy = true
	s.state.IsLoading = true
	s.state.Error = ""
	s.mu.Unlock()
	s.publish()

	msgs, err := s.gw.ListMessages(reqCtx, sessionID, s.limit)
	cancel()

	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded load", zap.String("session", sessionID))
		return ErrSuperseded
	}
	s.busy = false
	s.cancel = nil
	s.state.IsLoading = false
	if err != nil {
		s.state.Error = err.Error()
		s.failPendingLocked()
		s.mu.Unlock()
		s.logger.Warn("load failed", zap.String("session", sessionID), zap.Error(err))
		s.publish()
		return err
	}
	s.state.Messages = model.CloneMessages(msgs)
	s.state.SessionID = sessionID
	s.mu.Unlock()

	s.logger.Debug("loaded", zap.String("session", sessionID), zap.Int("messages", len(msgs)))
	s.publish()
	return nil
}

// Clear resets the stream to empty and unbound without a network call.
// Any outstanding request is cancelled and its result discarded.
func (s *Stream) Clear() {
	s.mu.Lock()
	s.supersedeLocked()
	s.state = model.ConversationState{Messages: []model.Message{}}
	s.mu.Unlock()
	s.publish()
}

// DismissError clears the error.
func (s *Stream) DismissError() {
	s.mu.Lock()
	s.state.Error = ""
	s.mu.Unlock()
	s.publish()
}

// =============================================================================
// SENDING
// =============================================================================

// Send appends content as a pending user message, posts it, and reconciles
// the log with the reply. Invalid content is rejected before any change.
func (s *Stream) Send(ctx context.Context, content string) (*SendResult, error) {
	content, err := NormalizeContent(content)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	msg := model.NewUserMessage(content)
	s.state.Messages = append(s.state.Messages, msg)
	req := s.beginLocked(ctx, msg)
	s.mu.Unlock()
	s.publish()

	return s.deliver(req)
}

// Resend retries a failed user message in place: same id, content and
// position. Only messages with a failed status can be resent.
func (s *Stream) Resend(ctx context.Context, messageID string) (*SendResult, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return nil, ErrBusy
	}
	idx := s.indexLocked(messageID)
	if idx < 0 || s.state.Messages[idx].Role != model.RoleUser || !s.state.Messages[idx].IsFailed() {
		s.mu.Unlock()
		return nil, ErrNotResendable
	}
	s.state.Messages[idx].Status = model.StatusPending
	req := s.beginLocked(ctx, s.state.Messages[idx])
	s.mu.Unlock()
	s.publish()

	return s.deliver(req)
}

// NormalizeContent applies Unicode NFC normalization, trims surrounding
// whitespace, and checks the length limits.
func NormalizeContent(content string) (string, error) {
	content = strings.TrimSpace(norm.NFC.String(content))
	if content == "" {
		return "", ErrEmptyMessage
	}
	if util.RuneLen(content) > model.MaxMessageRunes {
		return "", ErrMessageTooLong
	}
	return content, nil
}

// =============================================================================
// INTERNALS
// =============================================================================

// supersedeLocked starts a new generation, abandoning any outstanding request.
func (s *Stream) supersedeLocked() uint64 {
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.busy = false
	return s.generation
}

// failPendingLocked marks user messages that will never get a reply as
// failed. Only valid when no request is outstanding.
func (s *Stream) failPendingLocked() {
	for i := range s.state.Messages {
		m := &s.state.Messages[i]
		if m.Role == model.RoleUser && m.IsPending() {
			m.Status = model.StatusFailed
		}
	}
}

func (s *Stream) indexLocked(id string) int {
	for i := range s.state.Messages {
		if s.state.Messages[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Stream) snapshotLocked() model.ConversationState {
	return model.ConversationState{
		SessionID: s.state.SessionID,
		Messages:  model.CloneMessages(s.state.Messages),
		IsLoading: s.state.IsLoading,
		Error:     s.state.Error,
	}
}

func (s *Stream) publish() {
	s.listeners.Publish(s.State)
}
