// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"

	"go.uber.org/zap"

	"github.com/jeranaias/counsel-tui/internal/model"
)

// request is an outstanding send, tagged with the generation and the session
// it was issued against.
type request struct {
	ctx        context.Context
	cancel     context.CancelFunc
	generation uint64
	sessionID  string
	message    model.Message
}

// beginLocked marks the stream busy and returns the request for msg.
func (s *Stream) beginLocked(ctx context.Context, msg model.Message) request {
	reqCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.busy = true
	s.state.IsLoading = true
	s.state.Error = ""
	return request{
		ctx:        reqCtx,
		cancel:     cancel,
		generation: s.generation,
		sessionID:  s.state.SessionID,
		message:    msg,
	}
}

// deliver performs the request and reconciles the log with its outcome.
func (s *Stream) deliver(req request) (*SendResult, error) {
	resp, err := s.gw.SendMessage(req.ctx, req.message.Content, req.sessionID)
	req.cancel()

	result := &SendResult{
		Response: resp,
		Message:  req.message,
		Created:  req.sessionID == "",
	}

	s.mu.Lock()
	if req.generation != s.generation {
		s.mu.Unlock()
		if err != nil {
			s.logger.Debug("discarding superseded send failure", zap.Error(err))
			return nil, ErrSuperseded
		}
		s.logger.Debug("discarding superseded reply", zap.String("session", resp.SessionID))
		return result, nil
	}

	s.busy = false
	s.cancel = nil
	s.state.IsLoading = false
	idx := s.indexLocked(req.message.ID)

	if err != nil {
		if idx >= 0 {
			s.state.Messages[idx].Status = model.StatusFailed
		}
		s.state.Error = err.Error()
		s.mu.Unlock()
		s.logger.Warn("send failed", zap.String("session", req.sessionID), zap.Error(err))
		s.publish()
		return nil, err
	}

	if idx >= 0 {
		s.state.Messages[idx].Status = model.StatusDelivered
		result.Message = s.state.Messages[idx].Clone()
	}
	s.state.Messages = append(s.state.Messages, model.NewAssistantMessage(resp.Response, resp.Metadata()))
	// Binding is idempotent: a bound stream is never rebound by a reply.
	if s.state.SessionID == "" {
		s.state.SessionID = resp.SessionID
	} else if resp.SessionID != s.state.SessionID {
		s.logger.Warn("reply names a different session",
			zap.String("bound", s.state.SessionID),
			zap.String("reply", resp.SessionID))
	}
	result.Applied = true
	s.mu.Unlock()

	s.publish()
	return result, nil
}
