// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/jeranaias/counsel-tui/internal/util"
)

// ErrEmptyToken is returned when saving a blank token.
var ErrEmptyToken = errors.New("token is empty")

// SaveToken writes token to path atomically with owner-only permissions.
func SaveToken(path, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrEmptyToken
	}
	if len(token) > MaxTokenSize {
		return ErrTokenTooLarge
	}
	// SECURITY: token files are 0600 (owner read/write only)
	if err := util.WriteFileAtomic(path, []byte(token+"\n"), 0600, 0700); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// RemoveToken deletes the token file. A missing file is not an error.
func RemoveToken(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

// HasToken reports whether a non-empty token file exists at path.
func HasToken(path string) bool {
	token, err := readTokenFile(path)
	return err == nil && token != ""
}
