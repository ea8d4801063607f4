// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package directory keeps the local list of chat sessions in sync with the
// backend of record.
//
// Mutations are confirm-then-apply: Remove and Rename change the local list
// only after the backend acknowledges them, so a failure never leaves the
// list diverged from the server.
package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/util"
)

// ErrInvalidTitle is returned by Rename for blank or over-long titles.
var ErrInvalidTitle = errors.New("title must be between 1 and 200 characters")

// Gateway is the subset of the backend API the directory needs.
type Gateway interface {
	ListSessions(ctx context.Context) ([]model.Session, error)
	RenameSession(ctx context.Context, id, title string) (*model.Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Directory is the shared list of sessions. It is safe for concurrent use;
// the lock is never held across a network call.
type Directory struct {
	gw     Gateway
	logger *zap.Logger

	mu    sync.Mutex
	state model.DirectoryState

	refresh   singleflight.Group
	listeners util.Broadcaster[model.DirectoryState]
}

// New creates an empty directory backed by gw.
func New(gw Gateway, logger *zap.Logger) *Directory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Directory{
		gw:     gw,
		logger: logger.Named("directory"),
		state:  model.DirectoryState{Sessions: []model.Session{}},
	}
}

// =============================================================================
// QUERIES
// =============================================================================

// State returns a deep copy of the current state.
func (d *Directory) State() model.DirectoryState {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

// Sessions returns a copy of the session list.
func (d *Directory) Sessions() []model.Session {
	d.mu.Lock()
	defer d.mu.Unlock()
	return model.CloneSessions(d.state.Sessions)
}

// Get returns the session with id.
func (d *Directory) Get(id string) (model.Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Find(id)
}

// Subscribe registers fn to receive a snapshot after each state change.
// fn must not mutate the directory.
func (d *Directory) Subscribe(fn func(model.DirectoryState)) (unsubscribe func()) {
	return d.listeners.Subscribe(fn)
}

// =============================================================================
// REMOTE OPERATIONS
// =============================================================================

// Refresh replaces the list with the backend's. On failure the previous list
// is kept and Error is set. Concurrent calls share one request.
func (d *Directory) Refresh(ctx context.Context) error {
	_, err, shared := d.refresh.Do("refresh", func() (any, error) {
		return nil, d.doRefresh(ctx)
	})
	if shared {
		d.logger.Debug("refresh joined in-flight request")
	}
	return err
}

func (d *Directory) doRefresh(ctx context.Context) error {
	d.update(func(s *model.DirectoryState) {
		s.Loading = true
	})

	sessions, err := d.gw.ListSessions(ctx)
	if err != nil {
		d.logger.Warn("refresh failed", zap.Error(err))
		d.update(func(s *model.DirectoryState) {
			s.Loading = false
			s.Error = err.Error()
		})
		return err
	}

	d.update(func(s *model.DirectoryState) {
		s.Sessions = model.CloneSessions(sessions)
		s.Loading = false
		s.Error = ""
	})
	d.logger.Debug("refreshed", zap.Int("sessions", len(sessions)))
	return nil
}

// Remove deletes a session on the backend, then locally. On failure the
// entry stays and Error is set; success clears Error.
func (d *Directory) Remove(ctx context.Context, id string) error {
	if err := d.gw.DeleteSession(ctx, id); err != nil {
		d.logger.Warn("remove failed", zap.String("session", id), zap.Error(err))
		d.setError(err)
		return err
	}

	d.update(func(s *model.DirectoryState) {
		s.Sessions = without(s.Sessions, id)
		s.Error = ""
	})
	return nil
}

// Rename retitles a session on the backend, then locally. The title is
// trimmed and must be 1..200 characters. Success clears Error.
func (d *Directory) Rename(ctx context.Context, id, title string) error {
	title, err := NormalizeTitle(title)
	if err != nil {
		return err
	}

	updated, err := d.gw.RenameSession(ctx, id, title)
	if err != nil {
		d.logger.Warn("rename failed", zap.String("session", id), zap.Error(err))
		d.setError(err)
		return err
	}

	d.update(func(s *model.DirectoryState) {
		patchTitle(s, id, title, updated)
		s.Error = ""
	})
	return nil
}

// ApplyRename records a rename the backend has already confirmed. It makes
// no network call and leaves Error alone.
func (d *Directory) ApplyRename(id, title string, updated *model.Session) {
	d.update(func(s *model.DirectoryState) {
		patchTitle(s, id, title, updated)
	})
}

func patchTitle(s *model.DirectoryState, id, title string, updated *model.Session) {
	for i := range s.Sessions {
		if s.Sessions[i].ID != id {
			continue
		}
		s.Sessions[i].Title = title
		if updated != nil {
			if updated.Title != "" {
				s.Sessions[i].Title = updated.Title
			}
			// The rename reply does not carry counts, only timestamps.
			if !updated.UpdatedAt.IsZero() {
				s.Sessions[i].UpdatedAt = updated.UpdatedAt
			}
		}
		return
	}
}

// NormalizeTitle trims title and checks its length.
func NormalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	n := util.RuneLen(title)
	if n == 0 || n > model.MaxTitleRunes {
		return "", ErrInvalidTitle
	}
	return title, nil
}

// =============================================================================
// LOCAL OPERATIONS
// =============================================================================

// AddLocal inserts a session at the head of the list without a network
// call. An existing entry with the same id is replaced and moved to the head.
func (d *Directory) AddLocal(session model.Session) {
	if session.ID == "" {
		return
	}
	d.update(func(s *model.DirectoryState) {
		rest := without(s.Sessions, session.ID)
		s.Sessions = append([]model.Session{session}, rest...)
	})
}

// RecordExchange updates a session's summary after a successful send: two
// more messages, the reply as last message, and a move to the head. Unknown
// ids are ignored.
func (d *Directory) RecordExchange(id, lastMessage string, at time.Time) {
	d.update(func(s *model.DirectoryState) {
		idx := -1
		for i := range s.Sessions {
			if s.Sessions[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return
		}
		sess := s.Sessions[idx]
		sess.MessageCount += 2
		sess.LastMessage = model.Preview(lastMessage)
		if !at.IsZero() {
			sess.UpdatedAt = at
		}
		rest := without(s.Sessions, id)
		s.Sessions = append([]model.Session{sess}, rest...)
	})
}

// DismissError clears the error.
func (d *Directory) DismissError() {
	d.update(func(s *model.DirectoryState) {
		s.Error = ""
	})
}

// =============================================================================
// INTERNALS
// =============================================================================

func (d *Directory) snapshotLocked() model.DirectoryState {
	return model.DirectoryState{
		Sessions: model.CloneSessions(d.state.Sessions),
		Loading:  d.state.Loading,
		Error:    d.state.Error,
	}
}

// update applies fn under the lock, then notifies listeners outside it.
func (d *Directory) update(fn func(*model.DirectoryState)) {
	d.mu.Lock()
	fn(&d.state)
	d.mu.Unlock()
	d.listeners.Publish(d.State)
}

func (d *Directory) setError(err error) {
	d.update(func(s *model.DirectoryState) {
		s.Error = err.Error()
	})
}

// without returns a new slice holding sessions other than id.
func without(sessions []model.Session, id string) []model.Session {
	out := make([]model.Session, 0, len(sessions))
	for _, s := range sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	return out
}
