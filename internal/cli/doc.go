// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the counsel command line.
//
// Commands:
//
//	counsel                      Open the terminal UI (same as "counsel tui")
//	counsel chat                 Line-mode chat with history and slash commands
//	counsel sessions list        List sessions, most recent first
//	counsel sessions show ID     Print a session transcript
//	counsel sessions rename ID TITLE
//	counsel sessions delete ID
//	counsel sessions export ID   Write a session to json, yaml or markdown
//	counsel health               Check the backend
//	counsel login | logout       Store or remove the bearer token
//	counsel config get|set|show|path|init
//	counsel version
//
// Errors are returned, never printed by commands; Execute displays them and
// maps them to exit codes (see errors.go).
package cli
