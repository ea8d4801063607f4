// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package directory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jeranaias/counsel-tui/internal/api"
	"github.com/jeranaias/counsel-tui/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeGateway is an in-memory backend.
type fakeGateway struct {
	mu        sync.Mutex
	sessions  []model.Session
	listErr   error
	deleteErr error
	renameErr error
	listCalls atomic.Int32
	// listGate, when set, blocks ListSessions until closed.
	listGate chan struct{}
}

func (f *fakeGateway) ListSessions(ctx context.Context) ([]model.Session, error) {
	f.listCalls.Add(1)
	if f.listGate != nil {
		select {
		case <-f.listGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return model.CloneSessions(f.sessions), nil
}

func (f *fakeGateway) RenameSession(_ context.Context, id, title string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.renameErr != nil {
		return nil, f.renameErr
	}
	for i := range f.sessions {
		if f.sessions[i].ID == id {
			f.sessions[i].Title = title
			f.sessions[i].UpdatedAt = time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
			// Mirror the backend: the rename reply has no counts.
			reply := f.sessions[i]
			reply.MessageCount = 0
			reply.CreatedAt = time.Time{}
			return &reply, nil
		}
	}
	return nil, &api.Error{Kind: api.ErrNotFound, Status: 404, Message: "Session not found"}
}

func (f *fakeGateway) DeleteSession(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	out := f.sessions[:0]
	for _, s := range f.sessions {
		if s.ID != id {
			out = append(out, s)
		}
	}
	f.sessions = out
	return nil
}

func serverError(msg string) error {
	return &api.Error{Kind: api.ErrServer, Status: 500, Message: msg}
}

func ids(sessions []model.Session) []string {
	out := make([]string, len(sessions))
	for i, s := range sessions {
		out[i] = s.ID
	}
	return out
}

// loaded returns a directory already refreshed from gw.
func loaded(t *testing.T, gw *fakeGateway) *Directory {
	t.Helper()
	d := New(gw, nil)
	require.NoError(t, d.Refresh(context.Background()))
	return d
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_ReplacesList(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Deposit"}, {ID: "b", Title: "Wages"}}}
	d := New(gw, nil)

	assert.Empty(t, d.State().Sessions)
	require.NoError(t, d.Refresh(context.Background()))

	state := d.State()
	assert.Equal(t, []string{"a", "b"}, ids(state.Sessions))
	assert.False(t, state.Loading)
	assert.Empty(t, state.Error)
}

func TestRefresh_FailureKeepsList(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}}}
	d := loaded(t, gw)

	gw.listErr = serverError("Failed to fetch sessions")
	err := d.Refresh(context.Background())
	require.Error(t, err)

	state := d.State()
	assert.Equal(t, []string{"a"}, ids(state.Sessions))
	assert.False(t, state.Loading)
	assert.Equal(t, "Failed to fetch sessions", state.Error)

	// A later success clears the error.
	gw.listErr = nil
	require.NoError(t, d.Refresh(context.Background()))
	assert.Empty(t, d.State().Error)
}

func TestRefresh_LoadingDuringRequest(t *testing.T) {
	gate := make(chan struct{})
	gw := &fakeGateway{listGate: gate}
	d := New(gw, nil)

	loading := make(chan bool, 8)
	unsubscribe := d.Subscribe(func(s model.DirectoryState) { loading <- s.Loading })
	defer unsubscribe()

	done := make(chan error, 1)
	go func() { done <- d.Refresh(context.Background()) }()

	assert.True(t, <-loading)
	assert.True(t, d.State().Loading)
	close(gate)
	require.NoError(t, <-done)
	assert.False(t, <-loading)
}

func TestRefresh_ConcurrentCallsShareRequest(t *testing.T) {
	gate := make(chan struct{})
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}}, listGate: gate}
	d := New(gw, nil)

	started := make(chan struct{})
	var once sync.Once
	unsubscribe := d.Subscribe(func(s model.DirectoryState) {
		if s.Loading {
			once.Do(func() { close(started) })
		}
	})
	defer unsubscribe()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		assert.NoError(t, d.Refresh(context.Background()))
	}()
	<-started

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, d.Refresh(context.Background()))
		}()
	}
	// Give joiners time to attach to the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), gw.listCalls.Load())
	assert.Equal(t, []string{"a"}, ids(d.State().Sessions))
}

// =============================================================================
// REMOVE
// =============================================================================

func TestRemove_Success(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Deposit"}}}
	d := loaded(t, gw)

	require.NoError(t, d.Remove(context.Background(), "a"))
	assert.Empty(t, d.State().Sessions)
	assert.Empty(t, d.State().Error)
}

func TestRemove_FailureKeepsEntry(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Deposit"}}}
	d := loaded(t, gw)

	gw.deleteErr = serverError("Failed to delete session")
	err := d.Remove(context.Background(), "a")
	require.Error(t, err)
	assert.ErrorIs(t, err, api.ErrServer)

	state := d.State()
	assert.Equal(t, []string{"a"}, ids(state.Sessions))
	assert.Equal(t, "Failed to delete session", state.Error)

	d.DismissError()
	assert.Empty(t, d.State().Error)
}

func TestRemove_SuccessClearsEarlierError(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}, {ID: "b"}}}
	d := loaded(t, gw)

	gw.deleteErr = serverError("Failed to delete session")
	require.Error(t, d.Remove(context.Background(), "a"))
	require.Equal(t, "Failed to delete session", d.State().Error)

	gw.deleteErr = nil
	require.NoError(t, d.Remove(context.Background(), "a"))
	state := d.State()
	assert.Equal(t, []string{"b"}, ids(state.Sessions))
	assert.Empty(t, state.Error)
}

func TestRemove_LeavesOthersInOrder(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	d := loaded(t, gw)

	require.NoError(t, d.Remove(context.Background(), "b"))
	assert.Equal(t, []string{"a", "c"}, ids(d.State().Sessions))
}

// =============================================================================
// RENAME
// =============================================================================

func TestRename_ThenRefreshShowsNewTitle(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Old", CreatedAt: created, MessageCount: 6}}}
	d := loaded(t, gw)

	require.NoError(t, d.Rename(context.Background(), "a", "  New title  "))

	s, ok := d.Get("a")
	require.True(t, ok)
	assert.Equal(t, "New title", s.Title)
	assert.Equal(t, 6, s.MessageCount, "count kept from local entry")
	assert.Equal(t, created, s.CreatedAt, "created_at kept from local entry")
	assert.Equal(t, 5, int(s.UpdatedAt.Month()))

	require.NoError(t, d.Refresh(context.Background()))
	s, ok = d.Get("a")
	require.True(t, ok)
	assert.Equal(t, "New title", s.Title)
}

func TestRename_FailureLeavesTitle(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Old"}}}
	d := loaded(t, gw)

	gw.renameErr = serverError("Failed to update session")
	require.Error(t, d.Rename(context.Background(), "a", "New"))

	s, _ := d.Get("a")
	assert.Equal(t, "Old", s.Title)
	assert.Equal(t, "Failed to update session", d.State().Error)
}

func TestRename_SuccessClearsEarlierError(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Old"}}}
	d := loaded(t, gw)

	gw.renameErr = serverError("Failed to update session")
	require.Error(t, d.Rename(context.Background(), "a", "New"))
	require.Equal(t, "Failed to update session", d.State().Error)

	gw.renameErr = nil
	require.NoError(t, d.Rename(context.Background(), "a", "New"))
	s, _ := d.Get("a")
	assert.Equal(t, "New", s.Title)
	assert.Empty(t, d.State().Error)
}

func TestApplyRename_PatchesLocallyAndKeepsError(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Old", MessageCount: 2}}}
	d := loaded(t, gw)

	gw.deleteErr = serverError("Failed to delete session")
	require.Error(t, d.Remove(context.Background(), "a"))

	d.ApplyRename("a", "Quarterly taxes", nil)
	s, _ := d.Get("a")
	assert.Equal(t, "Quarterly taxes", s.Title)
	assert.Equal(t, 2, s.MessageCount)
	assert.Equal(t, "Failed to delete session", d.State().Error)

	gw.mu.Lock()
	defer gw.mu.Unlock()
	assert.Equal(t, "Old", gw.sessions[0].Title, "no backend call")
}

func TestRename_InvalidTitle(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Old"}}}
	d := loaded(t, gw)

	assert.ErrorIs(t, d.Rename(context.Background(), "a", "   "), ErrInvalidTitle)
	assert.ErrorIs(t, d.Rename(context.Background(), "a", strings.Repeat("x", 201)), ErrInvalidTitle)
	require.NoError(t, d.Rename(context.Background(), "a", strings.Repeat("é", 200)))
}

// =============================================================================
// LOCAL OPERATIONS
// =============================================================================

func TestAddLocal_InsertsAtHeadWithoutDuplicates(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}, {ID: "b"}}}
	d := loaded(t, gw)

	d.AddLocal(model.Session{ID: "c", Title: "New"})
	assert.Equal(t, []string{"c", "a", "b"}, ids(d.State().Sessions))

	d.AddLocal(model.Session{ID: "b", Title: "Moved"})
	assert.Equal(t, []string{"b", "c", "a"}, ids(d.State().Sessions))
	s, _ := d.Get("b")
	assert.Equal(t, "Moved", s.Title)

	d.AddLocal(model.Session{})
	assert.Len(t, d.State().Sessions, 3)
	assert.Equal(t, int32(1), gw.listCalls.Load(), "AddLocal makes no network call")
}

func TestRecordExchange(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a"}, {ID: "b", MessageCount: 2}}}
	d := loaded(t, gw)

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	d.RecordExchange("b", strings.Repeat("r", 150), at)

	want := model.Session{ID: "b", MessageCount: 4, LastMessage: strings.Repeat("r", 100), UpdatedAt: at}
	got := d.State().Sessions
	if diff := cmp.Diff(want, got[0]); diff != "" {
		t.Errorf("RecordExchange mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"b", "a"}, ids(got))

	d.RecordExchange("missing", "x", at)
	assert.Len(t, d.State().Sessions, 2)
}

func TestState_IsACopy(t *testing.T) {
	gw := &fakeGateway{sessions: []model.Session{{ID: "a", Title: "Deposit"}}}
	d := loaded(t, gw)

	state := d.State()
	state.Sessions[0].Title = "mutated"
	s, _ := d.Get("a")
	assert.Equal(t, "Deposit", s.Title)
}

func TestSubscribe_ReceivesChangesUntilUnsubscribed(t *testing.T) {
	gw := &fakeGateway{}
	d := New(gw, nil)

	var seen [][]string
	unsubscribe := d.Subscribe(func(s model.DirectoryState) {
		seen = append(seen, ids(s.Sessions))
	})

	d.AddLocal(model.Session{ID: "a"})
	d.AddLocal(model.Session{ID: "b"})
	unsubscribe()
	d.AddLocal(model.Session{ID: "c"})

	assert.Equal(t, [][]string{{"a"}, {"b", "a"}}, seen)
}

func TestNormalizeTitle(t *testing.T) {
	title, err := NormalizeTitle("\t Hello \n")
	require.NoError(t, err)
	assert.Equal(t, "Hello", title)

	_, err = NormalizeTitle("")
	assert.True(t, errors.Is(err, ErrInvalidTitle))
}
