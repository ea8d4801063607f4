// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

// MaxTokenSize bounds how much of a token file is read.
const MaxTokenSize = 64 * 1024

// ErrTokenTooLarge is returned when a token file exceeds MaxTokenSize.
var ErrTokenTooLarge = errors.New("token file too large")

// TokenSource yields the bearer token to attach to the next request.
// An empty token with a nil error means "call anonymously".
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// =============================================================================
// SOURCES
// =============================================================================

// StaticToken always returns the same token.
func StaticToken(token string) TokenSource {
	token = strings.TrimSpace(token)
	return TokenFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// Anonymous never yields a token.
func Anonymous() TokenSource {
	return StaticToken("")
}

// EnvSource reads the named environment variable on every call.
func EnvSource(name string) TokenSource {
	return TokenFunc(func(context.Context) (string, error) {
		return strings.TrimSpace(os.Getenv(name)), nil
	})
}

// FileSource reads the token file on every call. A missing file yields no
// token rather than an error so that logged-out users can still probe the
// backend.
func FileSource(path string) TokenSource {
	return TokenFunc(func(ctx context.Context) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if path == "" {
			return "", nil
		}
		return readTokenFile(path)
	})
}

func readTokenFile(path string) (string, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("open token file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxTokenSize+1))
	if err != nil {
		return "", fmt.Errorf("read token file: %w", err)
	}
	if len(data) > MaxTokenSize {
		return "", ErrTokenTooLarge
	}
	return strings.TrimSpace(string(data)), nil
}

// Chain returns a source that consults each source in order and returns the
// first non-empty token. Errors stop the chain.
func Chain(sources ...TokenSource) TokenSource {
	return TokenFunc(func(ctx context.Context) (string, error) {
		for _, src := range sources {
			if src == nil {
				continue
			}
			token, err := src.Token(ctx)
			if err != nil {
				return "", err
			}
			if token != "" {
				return token, nil
			}
		}
		return "", nil
	})
}
