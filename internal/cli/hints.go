// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"

	"github.com/jeranaias/counsel-tui/internal/api"
)

// =============================================================================
// ERROR HINTS
// =============================================================================

// ErrorHint is a titled set of next steps for a failure category.
type ErrorHint struct {
	Title       string
	Suggestions []string
}

// hintRule pairs a predicate with the hint it selects. Rules are checked in
// order, most specific first.
type hintRule struct {
	match func(error) bool
	hint  ErrorHint
}

func isKind(kind error) func(error) bool {
	return func(err error) bool { return errors.Is(err, kind) }
}

var hintRules = []hintRule{
	{
		match: func(err error) bool { return errors.Is(err, ErrNoTTY) },
		hint: ErrorHint{
			Title: "Interactive Terminal Required",
			Suggestions: []string{
				"Pass the message as an argument: counsel chat \"question\"",
				"Use the sessions commands for scripting",
			},
		},
	},
	{
		match: isKind(api.ErrAuth),
		hint: ErrorHint{
			Title: "Not Signed In",
			Suggestions: []string{
				"Store a fresh token: counsel login",
				"Or set COUNSEL_TOKEN for this shell",
			},
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
		hint: ErrorHint{
			Title: "Request Timeout",
			Suggestions: []string{
				"Try again - the backend may be busy",
				"Raise the limit: counsel config set api.timeout_secs 120",
			},
		},
	},
	{
		match: isKind(api.ErrNetwork),
		hint: ErrorHint{
			Title: "Backend Unreachable",
			Suggestions: []string{
				"Check the backend: counsel health",
				"Check api.url: counsel config get api.url",
			},
		},
	},
	{
		match: api.IsRetryable,
		hint: ErrorHint{
			Title: "Backend Error",
			Suggestions: []string{
				"Try again shortly",
				"Check the backend: counsel health",
			},
		},
	},
	{
		match: isKind(api.ErrNotFound),
		hint: ErrorHint{
			Title: "Session Not Found",
			Suggestions: []string{
				"List your sessions: counsel sessions list",
			},
		},
	},
	{
		match: func(err error) bool {
			var ce *ConfigError
			return errors.As(err, &ce)
		},
		hint: ErrorHint{
			Title: "Configuration Problem",
			Suggestions: []string{
				"Locate the file: counsel config path",
				"Write a fresh one after moving it aside: counsel config init",
			},
		},
	},
}

// HintFor returns next steps for err, or nil when there are none.
func HintFor(err error) *ErrorHint {
	if err == nil {
		return nil
	}
	for i := range hintRules {
		if hintRules[i].match(err) {
			return &hintRules[i].hint
		}
	}
	return nil
}
