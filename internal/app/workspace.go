// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires the session directory and the conversation stream
// together. Front ends talk to a Workspace, never to the two containers'
// cross-effects directly.
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/conversation"
	"github.com/jeranaias/counsel-tui/internal/directory"
	"github.com/jeranaias/counsel-tui/internal/model"
)

// Gateway is the backend API a workspace needs. *api.Client satisfies it.
type Gateway interface {
	directory.Gateway
	conversation.Gateway
	GetSession(ctx context.Context, id string) (*model.Session, error)
}

var _ Gateway = (*api.Client)(nil)

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds workspace behaviour.
type Config struct {
	// MessageLimit is how many messages opening a session fetches (default: 50).
	MessageLimit int

	// AutoTitle renames a newly created session after its first message.
	AutoTitle bool
}

// DefaultConfig returns the default workspace configuration.
func DefaultConfig() Config {
	return Config{
		MessageLimit: api.DefaultMessageLimit,
		AutoTitle:    true,
	}
}

// =============================================================================
// WORKSPACE
// =============================================================================

// Workspace owns the single Directory and Stream of a process.
type Workspace struct {
	gw     Gateway
	dir    *directory.Directory
	stream *conversation.Stream
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// New creates a workspace over gw.
func New(gw Gateway, cfg Config, logger *zap.Logger) *Workspace {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = api.DefaultMessageLimit
	}
	return &Workspace{
		gw:  gw,
		dir: directory.New(gw, logger),
		stream: conversation.New(gw,
			conversation.WithMessageLimit(cfg.MessageLimit),
			conversation.WithLogger(logger)),
		cfg:    cfg,
		logger: logger.Named("workspace"),
		now:    time.Now,
	}
}

// Directory returns the shared session directory.
func (w *Workspace) Directory() *directory.Directory {
	return w.dir
}

// Stream returns the conversation stream.
func (w *Workspace) Stream() *conversation.Stream {
	return w.stream
}

// Refresh reloads the session directory.
func (w *Workspace) Refresh(ctx context.Context) error {
	return w.dir.Refresh(ctx)
}

// Open makes id the active session.
func (w *Workspace) Open(ctx context.Context, id string) error {
	return w.stream.Load(ctx, id)
}

// NewChat starts an unbound conversation.
func (w *Workspace) NewChat() {
	w.stream.Clear()
}

// ActiveSession returns the bound session id, or "".
func (w *Workspace) ActiveSession() string {
	return w.stream.SessionID()
}

// Send posts content in the active conversation and updates the directory
// with the outcome.
func (w *Workspace) Send(ctx context.Context, content string) (*conversation.SendResult, error) {
	res, err := w.stream.Send(ctx, content)
	if err != nil {
		return nil, err
	}
	w.record(ctx, res)
	return res, nil
}

// Resend retries a failed message and updates the directory with the outcome.
func (w *Workspace) Resend(ctx context.Context, messageID string) (*conversation.SendResult, error) {
	res, err := w.stream.Resend(ctx, messageID)
	if err != nil {
		return nil, err
	}
	w.record(ctx, res)
	return res, nil
}

// Rename retitles a session.
func (w *Workspace) Rename(ctx context.Context, id, title string) error {
	return w.dir.Rename(ctx, id, title)
}

// Delete removes a session. If it is the active one, the conversation is
// cleared once the backend has confirmed the delete.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	if err := w.dir.Remove(ctx, id); err != nil {
		return err
	}
	if w.stream.SessionID() == id {
		w.stream.Clear()
	}
	return nil
}

// record reflects a send outcome in the directory.
func (w *Workspace) record(ctx context.Context, res *conversation.SendResult) {
	if res == nil || res.Response == nil {
		return
	}
	now := w.now()
	resp := res.Response

	if res.Created {
		w.dir.AddLocal(model.Session{
			ID:           resp.SessionID,
			Title:        model.DefaultSessionTitle,
			CreatedAt:    now,
			UpdatedAt:    now,
			MessageCount: 2,
			LastMessage:  model.Preview(resp.Response),
		})
		if w.cfg.AutoTitle {
			w.autoTitle(ctx, resp.SessionID, res.Message.Content)
		}
		return
	}
	if res.Applied {
		w.dir.RecordExchange(resp.SessionID, resp.Response, now)
	}
}

// autoTitle names a new session after its first message. Failures are only
// logged; the directory error is reserved for user actions.
func (w *Workspace) autoTitle(ctx context.Context, id, content string) {
	title, err := directory.NormalizeTitle(model.TitleFromMessage(content))
	if err != nil {
		return
	}
	updated, err := w.gw.RenameSession(ctx, id, title)
	if err != nil {
		w.logger.Warn("auto title failed", zap.String("session", id), zap.Error(err))
		return
	}
	w.dir.ApplyRename(id, title, updated)
}

// =============================================================================
// DETAIL
// =============================================================================

// SessionDetail is a session with its messages.
type SessionDetail struct {
	Session  model.Session   `json:"session" yaml:"session"`
	Messages []model.Message `json:"messages" yaml:"messages"`
}

// Detail fetches a session and its messages concurrently, without touching
// the active conversation.
func (w *Workspace) Detail(ctx context.Context, id string, limit int) (*SessionDetail, error) {
	if limit <= 0 {
		limit = w.cfg.MessageLimit
	}
	var (
		session  *model.Session
		messages []model.Message
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := w.gw.GetSession(gctx, id)
		session = s
		return err
	})
	g.Go(func() error {
		m, err := w.gw.ListMessages(gctx, id, limit)
		messages = m
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if session == nil {
		return nil, errors.New("session missing from response")
	}
	return &SessionDetail{Session: *session, Messages: messages}, nil
}
