// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a fetched session and its messages to a file.
//
// # Supported Formats
//
//   - JSON: machine-readable, the full session detail
//   - YAML: the same structure as JSON, friendlier to diff
//   - Markdown: a human-readable transcript with optional front matter
//
// # Usage
//
//	exp, err := export.ForFormat("markdown", nil)
//	if err != nil {
//	    return err
//	}
//	path, err := export.ToFile(detail, exp, &export.Options{OutputDir: "."})
package export
