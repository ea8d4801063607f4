// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
Package chat is the Bubble Tea front end of counsel.

The screen is a session sidebar next to the active conversation, with an
input line and a status bar underneath. All state lives in an
app.Workspace; the model only renders snapshots of it. Directory and
conversation listeners poke a one-slot channel, and the model re-reads
both snapshots whenever that channel fires, so a burst of changes costs a
single redraw.

# Keys

	enter     send (input) / open session (sidebar)
	tab       switch focus between input and sidebar
	ctrl+n    new conversation
	ctrl+r    resend the last failed message
	ctrl+l    refresh the session list
	r / f2    rename the selected session
	d / del   delete the selected session (press twice)
	esc       dismiss errors, cancel rename or delete
	f1        toggle help
	ctrl+c    quit
*/
package chat
