// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat with input history and slash commands.
//
// Usage:
//
//	counsel chat                       Start a new conversation
//	counsel chat --session ID          Continue a session
//	counsel chat "question"            Ask once and exit
//
// Commands inside the chat:
//
//	/help, /h           Show commands
//	/new, /n            Start a new conversation
//	/sessions, /ls      List sessions
//	/open ID            Continue a session
//	/rename TITLE       Rename the current session
//	/retry, /r          Resend the last undelivered message
//	/history            Show the current conversation
//	/debug              Toggle debug logging
//	/quit, /q           Exit

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeranaias/counsel-tui/internal/app"
	"github.com/jeranaias/counsel-tui/internal/config"
	"github.com/jeranaias/counsel-tui/internal/conversation"
	"github.com/jeranaias/counsel-tui/internal/model"
)

func newChatCmd(e *env) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat [MESSAGE]",
		Short: "Chat in line mode",
		Long: `Chat with the assistant without the full-screen UI.

With a MESSAGE argument the question is sent once, the reply printed,
and counsel exits. Without it an interactive prompt starts; type /help
for commands. Ctrl+C cancels a request in flight, Ctrl+D exits.`,
		Args: rangeArgs(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cs := newChatSession(e, e.workspace(), cmd.OutOrStdout())
			if sessionID != "" {
				if err := cs.open(cmd.Context(), sessionID); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				return cs.send(cmd.Context(), args[0])
			}
			if !IsTTY() {
				return ErrNoTTY
			}
			return cs.repl(cmd.Context(), newChatInput())
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "continue an existing session")
	return cmd
}

// =============================================================================
// INPUT
// =============================================================================

// lineReader reads one line of user input.
type lineReader interface {
	ReadInput(prompt string) (string, error)
	Close()
}

// chatInput provides input history and line editing.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	dir, err := config.ConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	in := &chatInput{line: line, historyFile: filepath.Join(dir, "chat_history")}
	if f, err := os.Open(in.historyFile); err == nil {
		_, _ = in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

// ReadInput prompts and records non-blank input in the history.
func (c *chatInput) ReadInput(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// Close saves the history owner-only and restores the terminal.
func (c *chatInput) Close() {
	defer c.line.Close()
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	_, _ = c.line.WriteHistory(f)
}

// =============================================================================
// SESSION
// =============================================================================

type chatSession struct {
	e   *env
	ws  *app.Workspace
	out io.Writer
	md  markdownRenderer

	// interactive is set while the REPL runs; one-shot mode has no /retry.
	interactive bool
}

func newChatSession(e *env, ws *app.Workspace, out io.Writer) *chatSession {
	return &chatSession{e: e, ws: ws, out: out, md: newRenderer(e)}
}

// requestContext cancels on Ctrl+C so a slow request can be abandoned
// without leaving the chat.
func requestContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt)
}

func (cs *chatSession) repl(ctx context.Context, in lineReader) error {
	defer in.Close()
	cs.interactive = true
	cs.printWelcome()

	for {
		input, err := in.ReadInput(PromptStyle.Render("counsel> "))
		if err != nil {
			// Ctrl+C at the prompt, Ctrl+D, or a closed stdin all end the chat.
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				cs.e.logger.Debug("prompt ended", zap.Error(err))
			}
			fmt.Fprintln(cs.out)
			return nil
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}

		if strings.HasPrefix(input, "/") {
			keepGoing, err := cs.handleSlash(ctx, input)
			if err != nil {
				cs.printError(err)
			}
			if !keepGoing {
				return nil
			}
			continue
		}
		if strings.EqualFold(input, "exit") || strings.EqualFold(input, "quit") {
			return nil
		}
		if err := cs.send(ctx, input); err != nil {
			cs.printError(err)
		}
	}
}

// send posts one message and prints the reply. A failed delivery leaves
// the message in the log for /retry.
func (cs *chatSession) send(ctx context.Context, input string) error {
	reqCtx, cancel := requestContext(ctx)
	defer cancel()

	res, err := cs.ws.Send(reqCtx, input)
	if err != nil {
		cs.printUndelivered(err)
		return err
	}
	cs.printReply(res)
	return nil
}

func (cs *chatSession) retry(ctx context.Context) error {
	failed := cs.ws.Stream().State().FailedMessages()
	if len(failed) == 0 {
		return conversation.ErrNotResendable
	}
	last := failed[len(failed)-1]

	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	res, err := cs.ws.Resend(reqCtx, last.ID)
	if err != nil {
		cs.printUndelivered(err)
		return err
	}
	cs.printReply(res)
	return nil
}

func (cs *chatSession) open(ctx context.Context, id string) error {
	reqCtx, cancel := requestContext(ctx)
	defer cancel()
	if err := cs.ws.Open(reqCtx, id); err != nil {
		return err
	}
	n := len(cs.ws.Stream().State().Messages)
	fmt.Fprintf(cs.out, "%s Continuing %s (%d messages)\n", RenderStatus(true), id, n)
	return nil
}

// =============================================================================
// SLASH COMMANDS
// =============================================================================

// handleSlash runs a slash command. It returns false when the chat should end.
func (cs *chatSession) handleSlash(ctx context.Context, line string) (bool, error) {
	parts := strings.Fields(line)
	command := strings.ToLower(parts[0])
	rest := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))

	switch command {
	case "/help", "/h", "/?", "/":
		cs.printHelp()
	case "/new", "/n":
		cs.ws.NewChat()
		fmt.Fprintln(cs.out, DimStyle.Render("[New conversation]"))
	case "/sessions", "/ls":
		reqCtx, cancel := requestContext(ctx)
		defer cancel()
		if err := cs.ws.Refresh(reqCtx); err != nil {
			return true, err
		}
		printSessionTable(cs.out, cs.ws.Directory().Sessions())
	case "/open", "/o":
		if rest == "" {
			return true, NewValidationError("session", "", "usage: /open SESSION_ID")
		}
		return true, cs.open(ctx, rest)
	case "/rename":
		id := cs.ws.ActiveSession()
		if id == "" {
			return true, errors.New("no active session; send a message first")
		}
		reqCtx, cancel := requestContext(ctx)
		defer cancel()
		if err := cs.ws.Rename(reqCtx, id, rest); err != nil {
			return true, err
		}
		fmt.Fprintf(cs.out, "%s Renamed\n", RenderStatus(true))
	case "/retry", "/r":
		return true, cs.retry(ctx)
	case "/history":
		cs.printHistory()
	case "/debug":
		if cs.e.level.Level() == zap.DebugLevel {
			cs.e.level.SetLevel(zap.InfoLevel)
			fmt.Fprintln(cs.out, DimStyle.Render("[Debug logging off]"))
		} else {
			cs.e.level.SetLevel(zap.DebugLevel)
			fmt.Fprintln(cs.out, DimStyle.Render("[Debug logging on]"))
		}
	case "/quit", "/q", "/exit":
		return false, nil
	default:
		return true, fmt.Errorf("unknown command: %s (type /help for commands)", command)
	}
	return true, nil
}

// =============================================================================
// OUTPUT
// =============================================================================

func (cs *chatSession) printWelcome() {
	fmt.Fprintln(cs.out, TitleStyle.Render("counsel "+Version))
	fmt.Fprintln(cs.out, DimStyle.Render("Connected to "+cs.e.cfg.API.URL+" - /help for commands, Ctrl+D to exit"))
	fmt.Fprintln(cs.out)
}

func (cs *chatSession) printHelp() {
	commands := []struct {
		cmd  string
		desc string
	}{
		{"/help, /h", "Show this help"},
		{"/new, /n", "Start a new conversation"},
		{"/sessions, /ls", "List sessions"},
		{"/open ID", "Continue a session"},
		{"/rename TITLE", "Rename the current session"},
		{"/retry, /r", "Resend the last undelivered message"},
		{"/history", "Show the current conversation"},
		{"/debug", "Toggle debug logging"},
		{"/quit, /q", "Exit chat"},
	}
	fmt.Fprintln(cs.out)
	for _, c := range commands {
		fmt.Fprintf(cs.out, "  %s  %s\n", PromptStyle.Render(fmt.Sprintf("%-15s", c.cmd)), DimStyle.Render(c.desc))
	}
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, DimStyle.Render("Tip: Ctrl+C cancels the current request, Ctrl+D exits"))
}

func (cs *chatSession) printReply(res *conversation.SendResult) {
	if !res.Applied {
		return
	}
	resp := res.Response
	fmt.Fprintln(cs.out)
	fmt.Fprintln(cs.out, cs.md.Render(resp.Response))
	meta := resp.Metadata()
	if line := metadataLine(&meta); line != "" {
		fmt.Fprintln(cs.out, DimStyle.Render(line))
	}
	if resp.Disclaimer != "" {
		fmt.Fprintln(cs.out, WarningStyle.Render(resp.Disclaimer))
	}
	fmt.Fprintln(cs.out)
}

func (cs *chatSession) printUndelivered(err error) {
	if errors.Is(err, conversation.ErrEmptyMessage) || errors.Is(err, conversation.ErrMessageTooLong) {
		return
	}
	if len(cs.ws.Stream().State().FailedMessages()) == 0 {
		return
	}
	msg := "[!] Not delivered"
	if cs.interactive {
		msg += " - /retry to resend"
	}
	fmt.Fprintln(cs.out, WarningStyle.Render(msg))
}

func (cs *chatSession) printHistory() {
	state := cs.ws.Stream().State()
	if len(state.Messages) == 0 {
		fmt.Fprintln(cs.out, DimStyle.Render("No messages yet."))
		return
	}
	for _, msg := range state.Messages {
		label := UserStyle.Render(msg.Role.DisplayName())
		if msg.Role == model.RoleAssistant {
			label = AssistantStyle.Render(msg.Role.DisplayName())
		}
		switch {
		case msg.IsFailed():
			label += " " + ErrorStyle.Render("[not delivered]")
		case msg.IsPending():
			label += " " + DimStyle.Render("[sending]")
		}
		fmt.Fprintln(cs.out, label)
		fmt.Fprintln(cs.out, msg.Content)
		fmt.Fprintln(cs.out)
	}
}

func (cs *chatSession) printError(err error) {
	fmt.Fprintf(cs.out, "%s %v\n", ErrorStyle.Render("[Error]"), err)
}
