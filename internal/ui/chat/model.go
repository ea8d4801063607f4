// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/conversation"
	"github.com/jeranaias/counsel-tui/internal/model"
	"github.com/jeranaias/counsel-tui/internal/ui/styles"
)

// focusArea is the pane receiving keys.
type focusArea int

const (
	focusInput focusArea = iota
	focusSidebar
)

// inputMode says what the input line is editing.
type inputMode int

const (
	modeChat inputMode = iota
	modeRename
)

const (
	headerHeight = 1
	inputHeight  = 3
	statusHeight = 1
)

// Options configures the chat screen.
type Options struct {
	// Theme defaults to styles.NewTheme().
	Theme *styles.Theme

	// MarkdownTheme is passed to styles.NewMarkdownRenderer. Empty disables
	// markdown rendering.
	MarkdownTheme string

	// TokenChanges fires when stored credentials change; each signal
	// triggers a directory refresh.
	TokenChanges <-chan struct{}
}

// Model is the Bubble Tea model of the chat screen.
type Model struct {
	ctx context.Context
	ws  *app.Workspace

	theme   *styles.Theme
	mdTheme string
	md      *styles.MarkdownRenderer
	keys    KeyMap
	help    help.Model

	input    textinput.Model
	viewport viewport.Model
	spinner  spinner.Model

	changes chan struct{}
	tokens  <-chan struct{}
	unsubs  []func()

	// Latest snapshots
	conv model.ConversationState
	dir  model.DirectoryState

	selected      int
	focus         focusArea
	mode          inputMode
	renameTarget  string
	pendingDelete string
	notice        string
	showHelp      bool

	width  int
	height int
	ready  bool
}

// New creates the chat screen over ws. Requests made from the screen use
// ctx; cancelling it aborts them.
func New(ctx context.Context, ws *app.Workspace, opts Options) Model {
	theme := opts.Theme
	if theme == nil {
		theme = styles.NewTheme()
	}

	ti := textinput.New()
	ti.Placeholder = "Ask a question... (Enter to send, F1 for help)"
	ti.Prompt = "> "
	ti.PromptStyle = theme.Prompt
	ti.CharLimit = model.MaxMessageRunes
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = theme.Pending

	m := Model{
		ctx:      ctx,
		ws:       ws,
		theme:    theme,
		mdTheme:  opts.MarkdownTheme,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		input:    ti,
		viewport: viewport.New(80, 20),
		spinner:  sp,
		changes:  make(chan struct{}, 1),
		tokens:   opts.TokenChanges,
		conv:     ws.Stream().State(),
		dir:      ws.Directory().State(),
	}

	signal := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	m.unsubs = []func(){
		ws.Stream().Subscribe(func(model.ConversationState) { signal() }),
		ws.Directory().Subscribe(func(model.DirectoryState) { signal() }),
	}
	return m
}

// Close detaches the screen from the workspace.
func (m Model) Close() {
	for _, unsub := range m.unsubs {
		unsub()
	}
}

// Init starts the listeners, the spinner and the first directory refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		waitForSignal(m.changes, stateChangedMsg{}),
		waitForSignal(m.tokens, tokenChangedMsg{}),
		refreshCmd(m.ctx, m.ws),
	)
}

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case stateChangedMsg:
		m = m.syncState()
		return m, waitForSignal(m.changes, stateChangedMsg{})

	case tokenChangedMsg:
		m.notice = "Credentials changed, refreshing sessions"
		return m, tea.Batch(refreshCmd(m.ctx, m.ws), waitForSignal(m.tokens, tokenChangedMsg{}))

	case conversation.SentMsg:
		m.notice = noticeFor(msg.Err)
		return m.syncState(), nil

	case conversation.LoadedMsg:
		m.notice = noticeFor(msg.Err)
		if msg.Err == nil {
			m.focus = focusInput
			m.input.Focus()
		}
		return m.syncState(), nil

	case refreshedMsg:
		return m.syncState(), nil

	case deletedMsg:
		if msg.err == nil {
			m.notice = "Session deleted"
		}
		return m.syncState(), nil

	case renamedMsg:
		if msg.err == nil {
			m.notice = "Session renamed"
		} else {
			m.notice = msg.err.Error()
		}
		return m.syncState(), nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// syncState re-reads both snapshots and redraws the conversation.
func (m Model) syncState() Model {
	prev := len(m.conv.Messages)
	m.conv = m.ws.Stream().State()
	m.dir = m.ws.Directory().State()
	if m.selected >= len(m.dir.Sessions) {
		m.selected = len(m.dir.Sessions) - 1
	}
	if m.selected < 0 {
		m.selected = 0
	}
	m.viewport.SetContent(m.renderMessages(m.viewport.Width))
	if len(m.conv.Messages) != prev {
		m.viewport.GotoBottom()
	}
	return m
}

// busy reports whether a request of the conversation is outstanding.
func (m Model) busy() bool {
	if m.conv.IsLoading {
		return true
	}
	for _, msg := range m.conv.Messages {
		if msg.IsPending() {
			return true
		}
	}
	return false
}
