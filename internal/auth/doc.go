// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth provides bearer credential acquisition for backend calls.
//
// Identity is owned by an external authentication service. This package only
// knows how to read the credential it issued: from a static value, an
// environment variable or a token file written by "counsel login". Sources are
// consulted on every call and never cache, so a refreshed token is picked up
// by the very next request.
//
// # Key Types
//
//   - TokenSource: Interface implemented by every credential source
//   - FileSource: Reads a token file on each call (missing file = anonymous)
//   - EnvSource: Reads an environment variable on each call
//   - Chain: First source that yields a non-empty token wins
//   - FileWatcher: fsnotify watch on the token file (re-login notifications)
//
// # Usage
//
//	src := auth.Chain(auth.EnvSource("COUNSEL_TOKEN"), auth.FileSource(path))
//	token, err := src.Token(ctx)
package auth
