// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared by the counsel packages.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes: UTF-8 safe truncation with ellipsis
//   - TruncateWidth: Display-width truncation for terminal columns
//   - SingleLine: Collapses whitespace runs for one-line listings
//
// File Operations:
//   - WriteFileAtomic: Crash-safe replace via temp file, fsync and rename
//
// # Usage
//
//	// Fit a session title into a 30-column sidebar
//	title := util.TruncateWidth(util.SingleLine(s.Title), 30)
//
//	// Write the token file atomically
//	err := util.WriteFileAtomic(path, data, 0600, 0700)
package util
