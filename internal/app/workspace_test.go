// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package app

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeBackend is a small stateful backend.
type fakeBackend struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	messages  map[string][]model.Message
	order     []string
	nextID    int
	renames   []string
	sendErr   error
	deleteErr error
	renameErr error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{sessions: map[string]*model.Session{}, messages: map[string][]model.Message{}}
}

func (f *fakeBackend) add(id, title string, msgs ...model.Message) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[id] = &model.Session{ID: id, Title: title, MessageCount: len(msgs)}
	f.messages[id] = msgs
	f.order = append([]string{id}, f.order...)
}

func (f *fakeBackend) SendMessage(_ context.Context, content, sessionID string) (*api.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	if sessionID == "" {
		f.nextID++
		sessionID = "s" + string(rune('0'+f.nextID))
		f.sessions[sessionID] = &model.Session{ID: sessionID, Title: model.DefaultSessionTitle}
		f.order = append([]string{sessionID}, f.order...)
	}
	reply := "reply to " + content
	f.messages[sessionID] = append(f.messages[sessionID],
		model.Message{ID: "u", Role: model.RoleUser, Content: content},
		model.Message{ID: "a", Role: model.RoleAssistant, Content: reply, Metadata: &model.MessageMetadata{}})
	f.sessions[sessionID].MessageCount += 2
	return &api.ChatResponse{Response: reply, SessionID: sessionID}, nil
}

func (f *fakeBackend) ListSessions(context.Context) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Session, 0, len(f.order))
	for _, id := range f.order {
		if s, ok := f.sessions[id]; ok {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeBackend) GetSession(_ context.Context, id string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[id]
	if !ok {
		return nil, &api.Error{Kind: api.ErrNotFound, Status: 404, Message: "Session not found"}
	}
	cp := *s
	return &cp, nil
}

func (f *fakeBackend) ListMessages(_ context.Context, id string, limit int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sessions[id]; !ok {
		return nil, &api.Error{Kind: api.ErrNotFound, Status: 404, Message: "Session not found"}
	}
	msgs := f.messages[id]
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return model.CloneMessages(msgs), nil
}

func (f *fakeBackend) RenameSession(_ context.Context, id, title string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	s, ok := f.sessions[id]
	if !ok {
		return nil, &api.Error{Kind: api.ErrNotFound, Status: 404, Message: "Session not found"}
	}
	f.renames = append(f.renames, id+"="+title)
	s.Title = title
	return &model.Session{ID: id, Title: title}, nil
}

func (f *fakeBackend) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.sessions, id)
	delete(f.messages, id)
	return nil
}

func newWorkspace(gw Gateway, autoTitle bool) *Workspace {
	cfg := DefaultConfig()
	cfg.AutoTitle = autoTitle
	w := New(gw, cfg, nil)
	w.now = func() time.Time { return time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC) }
	return w
}

// =============================================================================
// TESTS
// =============================================================================

func TestSend_NewSessionAppearsInDirectory(t *testing.T) {
	gw := newFakeBackend()
	w := newWorkspace(gw, false)

	res, err := w.Send(context.Background(), "My landlord won't return my deposit")
	require.NoError(t, err)
	assert.True(t, res.Created)

	sessions := w.Directory().State().Sessions
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, model.DefaultSessionTitle, sessions[0].Title)
	assert.Equal(t, 2, sessions[0].MessageCount)
	assert.Equal(t, "reply to My landlord won't return my deposit", sessions[0].LastMessage)
	assert.Equal(t, "s1", w.ActiveSession())
}

func TestSend_AutoTitleRenamesNewSession(t *testing.T) {
	gw := newFakeBackend()
	w := newWorkspace(gw, true)

	_, err := w.Send(context.Background(), "My landlord\nwon't return my deposit")
	require.NoError(t, err)

	s, ok := w.Directory().Get("s1")
	require.True(t, ok)
	assert.Equal(t, "My landlord won't return my deposit", s.Title)
	assert.Equal(t, []string{"s1=My landlord won't return my deposit"}, gw.renames)
}

func TestSend_AutoTitleFailureKeepsDirectoryQuiet(t *testing.T) {
	gw := newFakeBackend()
	gw.renameErr = &api.Error{Kind: api.ErrServer, Status: 500, Message: "Failed to update session"}
	w := newWorkspace(gw, true)

	res, err := w.Send(context.Background(), "My landlord won't return my deposit")
	require.NoError(t, err)
	assert.True(t, res.Applied)

	state := w.Directory().State()
	assert.Empty(t, state.Error)
	require.Len(t, state.Sessions, 1)
	assert.Equal(t, model.DefaultSessionTitle, state.Sessions[0].Title)
	assert.Empty(t, w.Stream().State().Error)
}

func TestSend_ExistingSessionRecordsExchange(t *testing.T) {
	gw := newFakeBackend()
	gw.add("old", "Old")
	gw.add("a", "Deposit", model.Message{ID: "m1", Role: model.RoleUser, Content: "hi"})
	w := newWorkspace(gw, true)
	require.NoError(t, w.Refresh(context.Background()))
	require.NoError(t, w.Open(context.Background(), "old"))

	_, err := w.Send(context.Background(), "follow up")
	require.NoError(t, err)

	sessions := w.Directory().State().Sessions
	require.Len(t, sessions, 2)
	assert.Equal(t, "old", sessions[0].ID, "active session moves to the head")
	assert.Equal(t, 2, sessions[0].MessageCount)
	assert.Equal(t, "reply to follow up", sessions[0].LastMessage)
	assert.Equal(t, time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC), sessions[0].UpdatedAt)
	assert.Empty(t, gw.renames, "existing sessions are not auto-titled")
}

func TestSend_FailureLeavesDirectory(t *testing.T) {
	gw := newFakeBackend()
	gw.sendErr = &api.Error{Kind: api.ErrServer, Status: 500, Message: "Upstream timeout"}
	w := newWorkspace(gw, true)

	_, err := w.Send(context.Background(), "Hello")
	require.Error(t, err)
	assert.Empty(t, w.Directory().State().Sessions)
	assert.Equal(t, "Upstream timeout", w.Stream().State().Error)

	gw.sendErr = nil
	failed := w.Stream().State().FailedMessages()
	require.Len(t, failed, 1)
	res, err := w.Resend(context.Background(), failed[0].ID)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.Len(t, w.Directory().State().Sessions, 1)
}

func TestDelete_ActiveSessionClearsStream(t *testing.T) {
	gw := newFakeBackend()
	gw.add("a", "Deposit", model.Message{ID: "m1", Role: model.RoleUser, Content: "hi"})
	gw.add("b", "Wages")
	w := newWorkspace(gw, false)
	require.NoError(t, w.Refresh(context.Background()))
	require.NoError(t, w.Open(context.Background(), "a"))

	require.NoError(t, w.Delete(context.Background(), "b"))
	assert.Equal(t, "a", w.ActiveSession(), "deleting another session keeps the stream")

	require.NoError(t, w.Delete(context.Background(), "a"))
	assert.Empty(t, w.ActiveSession())
	assert.Empty(t, w.Stream().State().Messages)
	assert.Empty(t, w.Directory().State().Sessions)
}

func TestDelete_FailureKeepsStream(t *testing.T) {
	gw := newFakeBackend()
	gw.add("a", "Deposit", model.Message{ID: "m1", Role: model.RoleUser, Content: "hi"})
	w := newWorkspace(gw, false)
	require.NoError(t, w.Refresh(context.Background()))
	require.NoError(t, w.Open(context.Background(), "a"))

	gw.deleteErr = &api.Error{Kind: api.ErrServer, Status: 500, Message: "Failed to delete session"}
	require.Error(t, w.Delete(context.Background(), "a"))
	assert.Equal(t, "a", w.ActiveSession())
	assert.Len(t, w.Directory().State().Sessions, 1)
	assert.Equal(t, "Failed to delete session", w.Directory().State().Error)
}

func TestNewChat(t *testing.T) {
	gw := newFakeBackend()
	gw.add("a", "Deposit", model.Message{ID: "m1", Role: model.RoleUser, Content: "hi"})
	w := newWorkspace(gw, false)
	require.NoError(t, w.Open(context.Background(), "a"))

	w.NewChat()
	assert.Empty(t, w.ActiveSession())

	_, err := w.Send(context.Background(), "fresh start")
	require.NoError(t, err)
	assert.Equal(t, "s1", w.ActiveSession())
}

func TestRename(t *testing.T) {
	gw := newFakeBackend()
	gw.add("a", "Deposit")
	w := newWorkspace(gw, false)
	require.NoError(t, w.Refresh(context.Background()))

	require.NoError(t, w.Rename(context.Background(), "a", "Security deposit"))
	s, _ := w.Directory().Get("a")
	assert.Equal(t, "Security deposit", s.Title)
}

func TestDetail(t *testing.T) {
	gw := newFakeBackend()
	gw.add("a", "Deposit",
		model.Message{ID: "m1", Role: model.RoleUser, Content: "q"},
		model.Message{ID: "m2", Role: model.RoleAssistant, Content: "r", Metadata: &model.MessageMetadata{}})
	w := newWorkspace(gw, false)

	detail, err := w.Detail(context.Background(), "a", 0)
	require.NoError(t, err)
	assert.Equal(t, "Deposit", detail.Session.Title)
	assert.Len(t, detail.Messages, 2)
	assert.Empty(t, w.ActiveSession(), "detail does not open the session")

	_, err = w.Detail(context.Background(), "missing", 10)
	assert.ErrorIs(t, err, api.ErrNotFound)
}
