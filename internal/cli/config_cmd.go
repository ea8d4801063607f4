// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jeranaias/counsel-tui/internal/config"
)

func newConfigCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change configuration",
		Long: `Show or change counsel configuration.

Keys use dot notation: api.url, api.timeout_secs, ui.theme, ...
'config show' prints the effective values, after environment and flag
overrides. 'config set' edits the file only.

Examples:
  counsel config show
  counsel config get api.url
  counsel config set api.url https://counsel.example.mil
  counsel config path`,
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the effective configuration",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				if e.opts.jsonOut {
					fmt.Fprintln(cmd.OutOrStdout(), e.cfg.String())
					return nil
				}
				for _, key := range config.GetAllKeys() {
					fmt.Fprintln(cmd.OutOrStdout(), RenderField(key, displayValue(e.cfg, key)))
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "get KEY",
			Short: "Print one effective value",
			Args:  exactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if _, err := e.cfg.Get(args[0]); err != nil {
					return NewValidationError("key", args[0], err.Error())
				}
				fmt.Fprintln(cmd.OutOrStdout(), displayValue(e.cfg, args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Write one value to the config file",
			Args:  exactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := e.configFile()
				if err != nil {
					return &ConfigError{Err: err}
				}
				cfg, err := loadFileOnly(path)
				if err != nil {
					return &ConfigError{Err: err}
				}
				if err := cfg.Set(args[0], args[1]); err != nil {
					return NewValidationError("key", args[0], err.Error())
				}
				if err := cfg.Validate(); err != nil {
					return NewValidationError(args[0], args[1], err.Error())
				}
				if err := saveFile(cfg, path); err != nil {
					return &ConfigError{Err: err}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s = %s\n", RenderStatus(true), args[0], displayValue(cfg, args[0]))
				return nil
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Write a config file with default values",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := e.configFile()
				if err != nil {
					return &ConfigError{Err: err}
				}
				if _, err := os.Stat(path); err == nil {
					return NewValidationError("config", path, "file already exists")
				}
				if err := saveFile(config.Default(), path); err != nil {
					return &ConfigError{Err: err}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s Wrote %s\n", RenderStatus(true), path)
				return nil
			},
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file location",
			Args:  exactArgs(0),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := e.configFile()
				if err != nil {
					return &ConfigError{Err: err}
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			},
		},
	)
	return cmd
}

func (e *env) configFile() (string, error) {
	if e.opts.configPath != "" {
		return e.opts.configPath, nil
	}
	return config.ConfigPathTOML()
}

// loadFileOnly reads path onto defaults without environment overrides, so
// 'config set' never persists a value that only came from the environment.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if strings.HasSuffix(path, ".json") {
		return cfg, config.LoadJSON(cfg, path)
	}
	return cfg, config.LoadTOML(cfg, path)
}

func saveFile(cfg *config.Config, path string) error {
	if strings.HasSuffix(path, ".json") {
		return config.SaveJSON(cfg, path)
	}
	return config.SaveTOML(cfg, path)
}

func displayValue(cfg *config.Config, key string) string {
	v, err := cfg.Get(key)
	if err != nil {
		return ""
	}
	s := fmt.Sprint(v)
	if config.IsSecretKey(key) && s != "" {
		return "[REDACTED]"
	}
	return s
}
